// Package index implements the batch embedding pipeline that loads the
// article dataset and upserts it into the vector collection. The pipeline is
// restart-safe: identity is the article id alone, every batch re-checks which
// ids the collection already holds, and upserts commit batch by batch, so an
// interrupted run resumes by skipping everything already indexed.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/legiroute/legiroute/engine/domain"
	"github.com/legiroute/legiroute/engine/ingest"
	"github.com/legiroute/legiroute/engine/semantic"
	"github.com/legiroute/legiroute/pkg/fn"
)

// Embedder computes document embeddings, one vector per input text,
// order-preserving. Implementations use the document-indexing task hint
// (asymmetric from query embedding).
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the subset of vector-collection operations the pipeline needs.
type Store interface {
	ExistingIDs(ctx context.Context, articleIDs []string) (map[string]bool, error)
	Upsert(ctx context.Context, records []semantic.Record) error
	Count(ctx context.Context) (uint64, error)
}

// Options configures pipeline behavior.
type Options struct {
	// BatchSize is deliberately small to respect external rate limits.
	BatchSize int
	// BatchInterval is the hard throttle between batch iterations. It
	// applies to skipped batches too: a conservative pace for rate-limited
	// free-tier APIs.
	BatchInterval time.Duration
	// Retry governs the embedding call only. Exhaustion aborts the run;
	// silently dropping documents would break the dataset's completeness.
	Retry fn.RetryOpts
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		BatchSize:     5,
		BatchInterval: 5 * time.Second,
		Retry: fn.RetryOpts{
			MaxAttempts: 20,
			MinWait:     10 * time.Second,
			MaxWait:     120 * time.Second,
			Multiplier:  2,
		},
	}
}

// Report summarizes a pipeline run.
type Report struct {
	NewDocuments   int
	Batches        int
	SkippedBatches int
	CollectionSize uint64
}

// Pipeline runs the dataset → embeddings → vector collection flow.
type Pipeline struct {
	store    Store
	embedder Embedder
	opts     Options
	log      *slog.Logger
}

// New creates a Pipeline.
func New(store Store, embedder Embedder, opts Options, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	return &Pipeline{store: store, embedder: embedder, opts: opts, log: log}
}

// Run loads and revalidates the dataset at datasetPath, then processes it in
// fixed-size batches: existence check, embed the new subset, upsert. A missing
// or malformed dataset is fatal. Retry exhaustion on the embedding call aborts
// the run; batches committed before the failure are preserved.
func (p *Pipeline) Run(ctx context.Context, datasetPath string) (Report, error) {
	var report Report

	articles, err := ingest.LoadDataset(datasetPath)
	if err != nil {
		return report, fmt.Errorf("index: %w", err)
	}
	p.log.Info("index: dataset loaded", "articles", len(articles), "path", datasetPath)

	embedAndStore := p.batchStage()

	// One token per BatchInterval, so consecutive batch iterations are
	// paced apart whether or not they did any work.
	limiter := rate.NewLimiter(rate.Every(p.opts.BatchInterval), 1)

	for start := 0; start < len(articles); start += p.opts.BatchSize {
		if err := limiter.Wait(ctx); err != nil {
			return report, fmt.Errorf("index: throttle: %w", err)
		}

		end := start + p.opts.BatchSize
		if end > len(articles) {
			end = len(articles)
		}
		batch := articles[start:end]
		report.Batches++

		fresh, err := p.newArticles(ctx, batch)
		if err != nil {
			return report, err
		}
		if len(fresh) == 0 {
			report.SkippedBatches++
			continue
		}

		added, err := embedAndStore(ctx, fresh).Unwrap()
		if err != nil {
			return report, fmt.Errorf("index: batch %d: %w", report.Batches, err)
		}
		report.NewDocuments += added
	}

	if count, err := p.store.Count(ctx); err != nil {
		p.log.Warn("index: collection count unavailable", "error", err)
	} else {
		report.CollectionSize = count
	}

	p.log.Info("index: pipeline finished",
		"new_documents", report.NewDocuments,
		"batches", report.Batches,
		"skipped_batches", report.SkippedBatches,
		"collection_size", report.CollectionSize,
	)
	return report, nil
}

// newArticles filters a batch down to the articles not yet in the collection.
func (p *Pipeline) newArticles(ctx context.Context, batch []domain.Article) ([]domain.Article, error) {
	ids := make([]string, len(batch))
	for i, a := range batch {
		ids[i] = a.ID
	}
	existing, err := p.store.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("index: existence check: %w", err)
	}

	fresh := make([]domain.Article, 0, len(batch))
	for _, a := range batch {
		if !existing[a.ID] {
			fresh = append(fresh, a)
		}
	}
	return fresh, nil
}

// batchStage composes embed → upsert for one batch of new articles, returning
// the number of documents added. The embed stage carries the retry policy.
func (p *Pipeline) batchStage() fn.Stage[[]domain.Article, int] {
	retry := p.opts.Retry
	retry.OnRetry = func(attempt int, err error, wait time.Duration) {
		p.log.Warn("index: embedding call failed, backing off",
			"attempt", attempt, "wait", wait, "error", err)
	}

	embed := fn.TracedStage("index.embed", fn.RetryStage(retry,
		func(ctx context.Context, batch []domain.Article) fn.Result[[]semantic.Record] {
			blobs := make([]string, len(batch))
			for i, a := range batch {
				blobs[i] = a.EmbeddingBlob()
			}
			vectors, err := p.embedder.EmbedDocuments(ctx, blobs)
			if err != nil {
				return fn.Err[[]semantic.Record](fmt.Errorf("embed batch: %w", err))
			}
			if len(vectors) != len(batch) {
				return fn.Errf[[]semantic.Record]("embed batch: got %d vectors for %d documents", len(vectors), len(batch))
			}

			records := make([]semantic.Record, len(batch))
			for i, a := range batch {
				records[i] = semantic.Record{
					ArticleID: a.ID,
					Embedding: vectors[i],
					Document:  blobs[i],
					Meta: semantic.Meta{
						ArticleID: a.ID,
						Num:       a.Number,
						Category:  a.Context,
						URL:       a.CitationURL(),
					},
				}
			}
			return fn.Ok(records)
		}))

	store := fn.TracedStage("index.upsert",
		func(ctx context.Context, records []semantic.Record) fn.Result[int] {
			if err := p.store.Upsert(ctx, records); err != nil {
				return fn.Err[int](fmt.Errorf("vector upsert: %w", err))
			}
			return fn.Ok(len(records))
		})

	return fn.Then(embed, store)
}
