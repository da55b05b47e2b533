package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/legiroute/legiroute/engine/domain"
	"github.com/legiroute/legiroute/engine/ingest"
	"github.com/legiroute/legiroute/engine/semantic"
	"github.com/legiroute/legiroute/pkg/fn"
)

// --- mocks ---

type mockStore struct {
	existing   map[string]bool
	upserted   [][]semantic.Record
	upsertErr  error
	existsErr  error
	checkCalls int
}

func (m *mockStore) ExistingIDs(_ context.Context, ids []string) (map[string]bool, error) {
	m.checkCalls++
	if m.existsErr != nil {
		return nil, m.existsErr
	}
	out := map[string]bool{}
	for _, id := range ids {
		if m.existing[id] {
			out[id] = true
		}
	}
	return out, nil
}

func (m *mockStore) Upsert(_ context.Context, records []semantic.Record) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, records)
	return nil
}

func (m *mockStore) Count(context.Context) (uint64, error) {
	n := 0
	for _, b := range m.upserted {
		n += len(b)
	}
	return uint64(n + len(m.existing)), nil
}

type mockEmbedder struct {
	calls    int
	failNext int
	batches  [][]string
}

func (m *mockEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.failNext > 0 {
		m.failNext--
		return nil, errors.New("rate limited")
	}
	m.batches = append(m.batches, texts)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 0.5}
	}
	return out, nil
}

// --- helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	return Options{
		BatchSize:     2,
		BatchInterval: time.Millisecond,
		Retry:         fn.RetryOpts{MaxAttempts: 3, MinWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 2},
	}
}

func writeDataset(t *testing.T, n int) string {
	t.Helper()
	articles := make([]domain.Article, n)
	for i := range articles {
		a, err := domain.NewArticle(
			fmt.Sprintf("LEGIARTI%012d", i),
			fmt.Sprintf("R%d-1", i+1),
			fmt.Sprintf("Contenu de l'article numéro %d du code.", i),
			"Code de la Route > Livre IV",
		)
		if err != nil {
			t.Fatal(err)
		}
		articles[i] = a
	}
	path := filepath.Join(t.TempDir(), "articles.json")
	if err := ingest.WriteDataset(path, articles); err != nil {
		t.Fatal(err)
	}
	return path
}

// --- tests ---

func TestRun_IndexesAllNewDocuments(t *testing.T) {
	store := &mockStore{}
	emb := &mockEmbedder{}
	p := New(store, emb, testOptions(), testLogger())

	report, err := p.Run(context.Background(), writeDataset(t, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.NewDocuments != 5 {
		t.Errorf("expected 5 new documents, got %d", report.NewDocuments)
	}
	if report.Batches != 3 { // 2 + 2 + 1
		t.Errorf("expected 3 batches, got %d", report.Batches)
	}
	if report.SkippedBatches != 0 {
		t.Errorf("expected no skipped batches, got %d", report.SkippedBatches)
	}
	if report.CollectionSize != 5 {
		t.Errorf("expected collection size 5, got %d", report.CollectionSize)
	}
	// One atomic upsert per batch.
	if len(store.upserted) != 3 {
		t.Errorf("expected 3 upsert calls, got %d", len(store.upserted))
	}
	// Documents embedded are the blobs.
	if got := emb.batches[0][0]; got != "Code de la Route > Livre IV \nArticle R1-1 : Contenu de l'article numéro 0 du code." {
		t.Errorf("unexpected embedded text: %q", got)
	}
	// Metadata carries the citation fields.
	meta := store.upserted[0][0].Meta
	if meta.Num != "R1-1" || meta.Category != "Code de la Route > Livre IV" {
		t.Errorf("unexpected meta: %+v", meta)
	}
	if meta.URL != "https://www.legifrance.gouv.fr/codes/article_lc/LEGIARTI000000000000" {
		t.Errorf("unexpected url: %s", meta.URL)
	}
}

func TestRun_SkipsFullyIndexedBatches(t *testing.T) {
	store := &mockStore{existing: map[string]bool{
		"LEGIARTI000000000000": true,
		"LEGIARTI000000000001": true,
	}}
	emb := &mockEmbedder{}
	p := New(store, emb, testOptions(), testLogger())

	report, err := p.Run(context.Background(), writeDataset(t, 4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.NewDocuments != 2 {
		t.Errorf("expected 2 new documents, got %d", report.NewDocuments)
	}
	if report.SkippedBatches != 1 {
		t.Errorf("expected 1 skipped batch, got %d", report.SkippedBatches)
	}
	// The fully-indexed batch must not trigger an embedding call.
	if emb.calls != 1 {
		t.Errorf("expected 1 embed call, got %d", emb.calls)
	}
}

func TestRun_PartialBatchEmbedsOnlyNew(t *testing.T) {
	store := &mockStore{existing: map[string]bool{"LEGIARTI000000000000": true}}
	emb := &mockEmbedder{}
	p := New(store, emb, testOptions(), testLogger())

	report, err := p.Run(context.Background(), writeDataset(t, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.NewDocuments != 1 {
		t.Errorf("expected 1 new document, got %d", report.NewDocuments)
	}
	if len(emb.batches) != 1 || len(emb.batches[0]) != 1 {
		t.Fatalf("expected a single-document embed call, got %+v", emb.batches)
	}
}

func TestRun_RetriesTransientEmbeddingFailures(t *testing.T) {
	store := &mockStore{}
	emb := &mockEmbedder{failNext: 2}
	p := New(store, emb, testOptions(), testLogger())

	report, err := p.Run(context.Background(), writeDataset(t, 2))
	if err != nil {
		t.Fatalf("expected recovery within attempt budget, got %v", err)
	}
	if report.NewDocuments != 2 {
		t.Errorf("expected 2 new documents, got %d", report.NewDocuments)
	}
	if emb.calls != 3 { // 2 failures + 1 success
		t.Errorf("expected 3 embed calls, got %d", emb.calls)
	}
}

func TestRun_AbortsOnRetryExhaustion(t *testing.T) {
	store := &mockStore{}
	emb := &mockEmbedder{failNext: 100}
	p := New(store, emb, testOptions(), testLogger())

	_, err := p.Run(context.Background(), writeDataset(t, 4))
	if err == nil {
		t.Fatal("expected run to abort after retry exhaustion")
	}
	// Nothing committed from the failing first batch.
	if len(store.upserted) != 0 {
		t.Errorf("failed batch must not be committed, got %d upserts", len(store.upserted))
	}
	if emb.calls != 3 { // MaxAttempts
		t.Errorf("expected 3 attempts, got %d", emb.calls)
	}
}

func TestRun_PreservesCommittedBatchesOnLaterFailure(t *testing.T) {
	store := &mockStore{}
	emb := &mockEmbedder{}
	opts := testOptions()
	p := New(store, emb, opts, testLogger())

	// Fail the second batch's upsert after the first commits.
	path := writeDataset(t, 4)
	committed := 0
	failing := &flakyStore{mockStore: store, failAfter: 1, onCommit: func() { committed++ }}
	p = New(failing, emb, opts, testLogger())

	_, err := p.Run(context.Background(), path)
	if err == nil {
		t.Fatal("expected failure on second batch")
	}
	if committed != 1 {
		t.Errorf("expected first batch committed, got %d", committed)
	}
}

type flakyStore struct {
	*mockStore
	failAfter int
	commits   int
	onCommit  func()
}

func (f *flakyStore) Upsert(ctx context.Context, records []semantic.Record) error {
	if f.commits >= f.failAfter {
		return errors.New("collection unavailable")
	}
	f.commits++
	f.onCommit()
	return f.mockStore.Upsert(ctx, records)
}

func TestRun_MissingDatasetIsFatal(t *testing.T) {
	p := New(&mockStore{}, &mockEmbedder{}, testOptions(), testLogger())
	if _, err := p.Run(context.Background(), filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected fatal error for missing dataset")
	}
}
