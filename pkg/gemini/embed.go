// Package gemini provides the Gemini-backed embedding client used by the
// indexing pipeline and the retriever. Document and query embeddings use
// distinct task hints: the asymmetric pair improves retrieval quality over a
// symmetric encoding.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrMissingAPIKey is returned when no API credential is configured.
var ErrMissingAPIKey = errors.New("gemini: GOOGLE_API_KEY is missing")

// NewClient creates a Gemini API client from an API key.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return client, nil
}

// EmbedClient computes embeddings with a fixed model.
type EmbedClient struct {
	client *genai.Client
	model  string
}

// NewEmbedClient creates an embedding client over an existing Gemini client.
func NewEmbedClient(client *genai.Client, model string) *EmbedClient {
	return &EmbedClient{client: client, model: model}
}

// EmbedDocuments embeds texts for indexing (RETRIEVAL_DOCUMENT task hint) in
// a single batch call. The response is order-preserving, one vector per input.
func (c *EmbedClient) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	em := c.client.EmbeddingModel(c.model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	batch := em.NewBatch()
	for _, t := range texts {
		batch = batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini: batch embed %d documents: %w", len(texts), err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini: got %d embeddings for %d documents", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Values
	}
	return vectors, nil
}

// EmbedQuery embeds a search query (RETRIEVAL_QUERY task hint).
func (c *EmbedClient) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	em := c.client.EmbeddingModel(c.model)
	em.TaskType = genai.TaskTypeRetrievalQuery

	resp, err := em.EmbedContent(ctx, genai.Text(query))
	if err != nil {
		return nil, fmt.Errorf("gemini: embed query: %w", err)
	}
	if resp.Embedding == nil {
		return nil, errors.New("gemini: empty embedding response")
	}
	return resp.Embedding.Values, nil
}
