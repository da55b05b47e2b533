// Command parse extracts in-force articles from a LEGI XML tree and writes
// the JSON dataset consumed by the indexing pipeline.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/legiroute/legiroute/engine/ingest"
)

func main() {
	var (
		src = flag.String("src", "data/code_de_la_route", "root directory of the LEGI XML export")
		out = flag.String("out", "data/dataset_code_route.json", "output dataset path")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	articles, scanned := ingest.ProcessDirectory(*src, log)
	if len(articles) == 0 {
		// No dataset is written: an empty file would silently wipe the
		// corpus on the next indexing run.
		log.Warn("parse: no in-force articles extracted, dataset not written",
			"src", *src, "files_scanned", scanned)
		return
	}

	if err := ingest.WriteDataset(*out, articles); err != nil {
		log.Error("parse: writing dataset failed", "path", *out, "error", err)
		os.Exit(1)
	}
	log.Info("parse: dataset written",
		"path", *out, "articles", len(articles), "files_scanned", scanned)
}
