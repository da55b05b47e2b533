// Package generation orchestrates answer generation: it assembles the
// grounding prompt from retrieval results, streams the model's answer, and
// routes incoming queries by intent. Every failure on this path degrades to a
// polite user-visible message; the interactive session never crashes.
package generation

import (
	"context"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"

	"github.com/legiroute/legiroute/engine/domain"
	"github.com/legiroute/legiroute/engine/retrieval"
)

// apologyMessage replaces the answer stream when generation fails.
const apologyMessage = "Une erreur est survenue lors de la génération de la réponse."

const systemPrompt = `Tu es **LégiRoute**, un assistant juridique indépendant spécialisé dans le Code de la Route français.

DIRECTIVES DE PERSONNALITÉ :
1. **IDENTITÉ** : Si l'on te demande qui tu es, réponds simplement : "Je suis LégiRoute, un assistant d'intelligence artificielle conçu pour vous aider à naviguer dans le Code de la Route." (Ne mentionne jamais tes technologies sous-jacentes ni qui t'a entraîné).
2. **STYLE** : Professionnel, concis, serviable.

RÈGLES DE RÉPONSE JURIDIQUE :
1. **CITATIONS** : Pour toute question sur la loi, tu DOIS citer les articles (ex: "Article R413-17").
2. **HONNÊTETÉ** : Ne dis jamais "Le document dit que...". Affirme les faits : "Selon l'article..."
3. **LIMITES** : Si la question n'est pas juridique (ex: "Qui es-tu ?", "Bonjour"), réponds naturellement SANS inventer de citations de loi.`

// Options configures the generator.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int32
}

// Generator streams grounded answers from the generation model.
type Generator struct {
	client *genai.Client
	opts   Options
	log    *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(client *genai.Client, opts Options, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{client: client, opts: opts, log: log}
}

// Stream generates an answer grounded in the retrieval results and delivers
// it as a finite, forward-only sequence of text chunks. The channel is closed
// when the answer is complete. On any generation failure the stream yields
// the fixed apology message instead of an error.
func (g *Generator) Stream(ctx context.Context, query string, results []domain.RetrievalResult) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)

		model := g.client.GenerativeModel(g.opts.Model)
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
		model.SetTemperature(g.opts.Temperature)
		model.SetMaxOutputTokens(g.opts.MaxTokens)

		prompt := buildPrompt(query, retrieval.FormatContext(results))
		it := model.GenerateContentStream(ctx, genai.Text(prompt))

		for {
			resp, err := it.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				g.log.Error("generation: stream failed", "error", err)
				emit(ctx, out, apologyMessage)
				return
			}
			for _, chunk := range textChunks(resp) {
				if !emit(ctx, out, chunk) {
					return
				}
			}
		}
	}()

	return out
}

// buildPrompt assembles the user-turn prompt: grounding context first, then
// the question.
func buildPrompt(query, contextBlock string) string {
	return "\nCONTEXTE JURIDIQUE :\n" + contextBlock +
		"\n\nQUESTION DE L'UTILISATEUR :\n" + query +
		"\n\nRÉPONSE :\n"
}

// textChunks extracts the text parts of a streamed response.
func textChunks(resp *genai.GenerateContentResponse) []string {
	var chunks []string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok && t != "" {
				chunks = append(chunks, string(t))
			}
		}
	}
	return chunks
}

func emit(ctx context.Context, out chan<- string, chunk string) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
