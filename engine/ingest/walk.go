package ingest

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/legiroute/legiroute/engine/domain"
)

// progressInterval controls how often the walk logs progress. The full dump
// holds tens of thousands of files.
const progressInterval = 1000

// ProcessDirectory recursively extracts every .xml file under root.
// It returns the retained articles (traversal order, not significant) and the
// number of files scanned. A missing root logs at error level and returns an
// empty slice; the walk itself never fails the caller.
func ProcessDirectory(root string, log *slog.Logger) ([]domain.Article, int) {
	if log == nil {
		log = slog.Default()
	}

	if _, err := os.Stat(root); err != nil {
		log.Error("ingest: source directory does not exist", "dir", root, "error", err)
		return nil, 0
	}

	log.Info("ingest: starting", "dir", root)

	var articles []domain.Article
	fileCount := 0

	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn("ingest: walk error, skipping", "path", path, "error", err)
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".xml") {
			return nil
		}

		fileCount++
		if article, ok := ExtractFile(path, log); ok {
			articles = append(articles, article)
		}
		if fileCount%progressInterval == 0 {
			log.Info("ingest: progress", "files", fileCount, "articles", len(articles))
		}
		return nil
	})

	log.Info("ingest: complete", "files", fileCount, "articles", len(articles))
	return articles, fileCount
}
