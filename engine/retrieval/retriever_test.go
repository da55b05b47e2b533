package retrieval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/legiroute/legiroute/engine/semantic"
)

// --- mocks ---

type mockEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (m *mockEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	m.calls++
	return m.vector, m.err
}

type mockSearcher struct {
	hits  []semantic.Hit
	err   error
	calls int
	lastK int
}

func (m *mockSearcher) Query(_ context.Context, _ []float32, k int) ([]semantic.Hit, error) {
	m.calls++
	m.lastK = k
	return m.hits, m.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func speedHit() semantic.Hit {
	return semantic.Hit{
		Score:    0.42,
		Document: "Code de la Route > Livre IV \nArticle R413-17 : Vitesse maximale de 130 km/h sur autoroute.",
		Meta: map[string]string{
			"article_id": "LEGIARTI000006841575",
			"num":        "R413-17",
			"category":   "Code de la Route > Livre IV",
			"url":        "https://www.legifrance.gouv.fr/codes/article_lc/LEGIARTI000006841575",
		},
	}
}

// --- tests ---

func TestSearch_Success(t *testing.T) {
	emb := &mockEmbedder{vector: []float32{0.1, 0.2}}
	store := &mockSearcher{hits: []semantic.Hit{speedHit()}}
	r := New(emb, store, 5, testLogger())

	results := r.Search(context.Background(), "Quelle est la vitesse sur autoroute ?", 3)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if store.lastK != 3 {
		t.Errorf("expected k=3, got %d", store.lastK)
	}
	res := results[0]
	if res.Article.Number != "R413-17" {
		t.Errorf("unexpected number: %s", res.Article.Number)
	}
	if res.Score != 0.42 {
		t.Errorf("unexpected score: %v", res.Score)
	}
	// The rehydrated content is the stored document text (the blob).
	if res.Article.Content != speedHit().Document {
		t.Errorf("content should be the stored document, got %q", res.Article.Content)
	}
}

func TestSearch_DefaultTopK(t *testing.T) {
	emb := &mockEmbedder{vector: []float32{0.1}}
	store := &mockSearcher{}
	r := New(emb, store, 7, testLogger())

	r.Search(context.Background(), "vitesse autoroute", 0)
	if store.lastK != 7 {
		t.Errorf("expected default k=7, got %d", store.lastK)
	}
}

func TestSearch_ShortQuerySkipsExternalCalls(t *testing.T) {
	emb := &mockEmbedder{vector: []float32{0.1}}
	store := &mockSearcher{hits: []semantic.Hit{speedHit()}}
	r := New(emb, store, 5, testLogger())

	for _, q := range []string{"", "ab", "  a  ", "\n\t"} {
		if results := r.Search(context.Background(), q, 5); len(results) != 0 {
			t.Errorf("query %q: expected no results", q)
		}
	}
	if emb.calls != 0 || store.calls != 0 {
		t.Errorf("short queries must not reach external services: embed=%d search=%d", emb.calls, store.calls)
	}
}

func TestSearch_EmbeddingFailureDegradesToEmpty(t *testing.T) {
	emb := &mockEmbedder{err: errors.New("quota exceeded")}
	store := &mockSearcher{hits: []semantic.Hit{speedHit()}}
	r := New(emb, store, 5, testLogger())

	if results := r.Search(context.Background(), "vitesse autoroute", 5); len(results) != 0 {
		t.Error("embedding failure should yield empty results")
	}
	if store.calls != 0 {
		t.Error("store must not be queried after embedding failure")
	}
}

func TestSearch_StoreFailureDegradesToEmpty(t *testing.T) {
	emb := &mockEmbedder{vector: []float32{0.1}}
	store := &mockSearcher{err: errors.New("connection refused")}
	r := New(emb, store, 5, testLogger())

	if results := r.Search(context.Background(), "vitesse autoroute", 5); len(results) != 0 {
		t.Error("store failure should yield empty results")
	}
}

func TestSearch_SkipsUnparseableHit(t *testing.T) {
	bad := semantic.Hit{Score: 0.1, Document: "x", Meta: map[string]string{"num": "R1"}}
	emb := &mockEmbedder{vector: []float32{0.1}}
	store := &mockSearcher{hits: []semantic.Hit{bad, speedHit()}}
	r := New(emb, store, 5, testLogger())

	results := r.Search(context.Background(), "vitesse autoroute", 5)
	if len(results) != 1 {
		t.Fatalf("expected the valid hit to survive, got %d results", len(results))
	}
	if results[0].Article.Number != "R413-17" {
		t.Errorf("unexpected survivor: %s", results[0].Article.Number)
	}
}

func TestRehydrate_MissingMetadataDefaults(t *testing.T) {
	hit := semantic.Hit{
		Score:    1.0,
		Document: "Texte de repli suffisamment long.",
		Meta:     map[string]string{},
	}
	res, err := rehydrate(hit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Article.ID != "unknown" {
		t.Errorf("expected id fallback, got %q", res.Article.ID)
	}
	if res.Article.Number != "N/A" {
		t.Errorf("expected number fallback, got %q", res.Article.Number)
	}
	if res.Article.Context != "Code de la Route" {
		t.Errorf("expected context fallback, got %q", res.Article.Context)
	}
}

func TestRehydrate_KeepsStoredURL(t *testing.T) {
	res, err := rehydrate(speedHit())
	if err != nil {
		t.Fatal(err)
	}
	if res.Article.CitationURL() != "https://www.legifrance.gouv.fr/codes/article_lc/LEGIARTI000006841575" {
		t.Errorf("unexpected url: %s", res.Article.CitationURL())
	}
}
