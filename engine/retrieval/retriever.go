// Package retrieval implements semantic search over the article collection:
// it embeds the user query, runs nearest-neighbor search, and rehydrates raw
// hits into typed results. It also provides the relevance filter and the
// grounding-context formatter consumed by the generator.
package retrieval

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/legiroute/legiroute/engine/domain"
	"github.com/legiroute/legiroute/engine/semantic"
)

// minQueryLength is the shortest trimmed query worth an embedding call.
const minQueryLength = 3

// Rehydration fallbacks for hits with incomplete metadata.
const (
	unknownID     = "unknown"
	unknownNumber = "N/A"
)

// QueryEmbedder embeds a single query using the query task hint (asymmetric
// from document indexing).
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Searcher abstracts the vector collection's nearest-neighbor query.
type Searcher interface {
	Query(ctx context.Context, embedding []float32, topK int) ([]semantic.Hit, error)
}

// Retriever is the search facade over the embedding service and the vector
// collection. Safe for concurrent readers; it holds no mutable state.
type Retriever struct {
	embedder QueryEmbedder
	store    Searcher
	topK     int
	log      *slog.Logger
}

// New creates a Retriever. topK is the default result count when Search is
// called with k <= 0.
func New(embedder QueryEmbedder, store Searcher, topK int, log *slog.Logger) *Retriever {
	if log == nil {
		log = slog.Default()
	}
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{embedder: embedder, store: store, topK: topK, log: log}
}

// Search runs semantic search for query and returns at most k results in the
// store's order (best match first). It never returns an error: a too-short
// query, an embedding failure, or a store failure all degrade to an empty
// slice, and a hit that fails to rehydrate is skipped so the rest survive.
func (r *Retriever) Search(ctx context.Context, query string, k int) []domain.RetrievalResult {
	if k <= 0 {
		k = r.topK
	}

	if utf8.RuneCountInString(strings.TrimSpace(query)) < minQueryLength {
		r.log.Warn("retrieval: query too short, skipping search")
		return nil
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		r.log.Error("retrieval: query embedding failed", "error", err)
		return nil
	}

	hits, err := r.store.Query(ctx, vector, k)
	if err != nil {
		r.log.Error("retrieval: vector query failed", "error", err)
		return nil
	}

	results := make([]domain.RetrievalResult, 0, len(hits))
	for i, hit := range hits {
		result, err := rehydrate(hit)
		if err != nil {
			r.log.Warn("retrieval: dropping unparseable hit", "index", i, "error", err)
			continue
		}
		results = append(results, result)
	}
	return results
}

// rehydrate reconstructs a typed result from a raw hit. Missing metadata
// falls back to placeholders rather than failing the whole result set. The
// hit's document text is the embedding blob stored at index time, so the
// rehydrated Content carries the blob, not the pristine article body.
func rehydrate(hit semantic.Hit) (domain.RetrievalResult, error) {
	id := hit.Meta["article_id"]
	if id == "" {
		id = unknownID
	}
	num := hit.Meta["num"]
	if num == "" {
		num = unknownNumber
	}
	category := hit.Meta["category"]
	if category == "" {
		category = domain.DefaultContext
	}

	article, err := domain.NewArticle(id, num, hit.Document, category)
	if err != nil {
		return domain.RetrievalResult{}, err
	}
	article.URL = hit.Meta["url"]

	return domain.RetrievalResult{Article: article, Score: hit.Score}, nil
}
