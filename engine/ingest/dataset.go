package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/legiroute/legiroute/engine/domain"
)

// datasetRecord is the on-disk shape of one article. The derived fields are
// written alongside the raw ones so the artifact is fully self-describing and
// human-inspectable.
type datasetRecord struct {
	ID      string  `json:"id"`
	Number  string  `json:"article_number"`
	Content string  `json:"content"`
	Context string  `json:"context"`
	URL     *string `json:"url"`
	Blob    string  `json:"blob_for_embedding"`
	FullURL string  `json:"full_url"`
}

// WriteDataset serializes articles to a pretty-printed UTF-8 JSON array at
// path, creating parent directories as needed. Non-ASCII characters are
// preserved literally.
func WriteDataset(path string, articles []domain.Article) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ingest: create output dir: %w", err)
	}

	records := make([]datasetRecord, len(articles))
	for i, a := range articles {
		rec := datasetRecord{
			ID:      a.ID,
			Number:  a.Number,
			Content: a.Content,
			Context: a.Context,
			Blob:    a.EmbeddingBlob(),
			FullURL: a.CitationURL(),
		}
		if a.URL != "" {
			u := a.URL
			rec.URL = &u
		}
		records[i] = rec
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ingest: create dataset file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("ingest: encode dataset: %w", err)
	}
	return nil
}

// LoadDataset reads a dataset artifact and re-validates every record through
// domain.NewArticle. Any malformed record fails the load; the indexing
// pipeline must never run on a partially valid dataset.
func LoadDataset(path string) ([]domain.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: read dataset %s: %w", path, err)
	}

	var records []datasetRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("ingest: decode dataset %s: %w", path, err)
	}

	articles := make([]domain.Article, 0, len(records))
	for i, rec := range records {
		a, err := domain.NewArticle(rec.ID, rec.Number, rec.Content, rec.Context)
		if err != nil {
			return nil, fmt.Errorf("ingest: dataset record %d: %w", i, err)
		}
		if rec.URL != nil {
			a.URL = *rec.URL
		}
		articles = append(articles, a)
	}
	return articles, nil
}
