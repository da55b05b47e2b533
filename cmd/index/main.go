// Command index embeds the article dataset and upserts it into the Qdrant
// collection. Safe to re-run: articles already present are skipped.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/legiroute/legiroute/engine/index"
	"github.com/legiroute/legiroute/engine/semantic"
	"github.com/legiroute/legiroute/pkg/config"
	"github.com/legiroute/legiroute/pkg/gemini"
	"github.com/legiroute/legiroute/pkg/metrics"
)

var met = metrics.New()

var (
	mDocsIndexed    = met.Counter("legiroute_index_documents_total", "New documents embedded and upserted")
	mBatches        = met.Counter("legiroute_index_batches_total", "Batch iterations processed")
	mBatchesSkipped = met.Counter("legiroute_index_batches_skipped_total", "Batches with no new documents")
	mCollectionSize = met.Gauge("legiroute_index_collection_size", "Points in the collection after the run")
	mRunDuration    = met.Histogram("legiroute_index_run_duration_seconds", "Full pipeline run time", nil)
)

func main() {
	var (
		dataset     = flag.String("dataset", "data/dataset_code_route.json", "article dataset path")
		metricsPort = flag.Int("metrics-port", 9091, "port for the /metrics endpoint")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	cfg := config.Load()
	if cfg.GoogleAPIKey == "" {
		log.Error("index: GOOGLE_API_KEY is not set")
		os.Exit(1)
	}

	met.ServeAsync(*metricsPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := semantic.New(cfg.QdrantAddr, cfg.Collection)
	if err != nil {
		log.Error("index: qdrant connect failed", "addr", cfg.QdrantAddr, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.EnsureCollection(ctx, cfg.EmbeddingDims); err != nil {
		log.Error("index: ensure collection failed", "collection", cfg.Collection, "error", err)
		os.Exit(1)
	}
	log.Info("index: connected to Qdrant", "collection", cfg.Collection, "dims", cfg.EmbeddingDims)

	client, err := gemini.NewClient(ctx, cfg.GoogleAPIKey)
	if err != nil {
		log.Error("index: gemini client failed", "error", err)
		os.Exit(1)
	}
	defer client.Close()
	embedder := gemini.NewEmbedClient(client, cfg.EmbeddingModel)

	pipeline := index.New(store, embedder, index.Options{
		BatchSize:     cfg.BatchSize,
		BatchInterval: cfg.SleepBetweenBatches,
		Retry:         cfg.RetryOpts(),
	}, log)

	start := time.Now()
	report, err := pipeline.Run(ctx, *dataset)
	mRunDuration.Since(start)

	mDocsIndexed.Add(int64(report.NewDocuments))
	mBatches.Add(int64(report.Batches))
	mBatchesSkipped.Add(int64(report.SkippedBatches))
	mCollectionSize.Set(int64(report.CollectionSize))

	if err != nil {
		log.Error("index: run failed", "error", err)
		os.Exit(1)
	}
}
