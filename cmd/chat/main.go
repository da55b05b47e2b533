// Command chat is the interactive LégiRoute assistant: it classifies each
// user message, retrieves relevant articles for legal questions, and streams
// the grounded answer to the terminal.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/legiroute/legiroute/engine/domain"
	"github.com/legiroute/legiroute/engine/generation"
	"github.com/legiroute/legiroute/engine/retrieval"
	"github.com/legiroute/legiroute/engine/semantic"
	"github.com/legiroute/legiroute/pkg/config"
	"github.com/legiroute/legiroute/pkg/gemini"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(log)

	cfg := config.Load()
	if cfg.GoogleAPIKey == "" {
		fmt.Fprintln(os.Stderr, "GOOGLE_API_KEY n'est pas définie.")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := semantic.New(cfg.QdrantAddr, cfg.Collection)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connexion à Qdrant impossible (%s) : %v\n", cfg.QdrantAddr, err)
		os.Exit(1)
	}
	defer store.Close()

	ok, err := store.CollectionExists(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Vérification de la collection impossible : %v\n", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Fprintf(os.Stderr, "La collection %q n'existe pas. Lancez d'abord les commandes parse puis index.\n", cfg.Collection)
		os.Exit(1)
	}

	client, err := gemini.NewClient(ctx, cfg.GoogleAPIKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client Gemini indisponible : %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	retriever := retrieval.New(
		gemini.NewEmbedClient(client, cfg.EmbeddingModel),
		store,
		cfg.DefaultTopK,
		log,
	)
	classifier := generation.NewClassifier(client, cfg.ClassifierModel, log)
	generator := generation.NewGenerator(client, generation.Options{
		Model:       cfg.GenerationModel,
		Temperature: cfg.GenerationTemperature,
		MaxTokens:   cfg.GenerationMaxTokens,
	}, log)

	fmt.Println("LégiRoute — assistant Code de la Route. Tapez votre question (quit pour sortir).")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nVous : ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "quit" || query == "exit" {
			break
		}

		var results []domain.RetrievalResult
		if classifier.Classify(ctx, query) == generation.IntentLegalQuery {
			hits := retriever.Search(ctx, query, cfg.DefaultTopK)
			results = retrieval.FilterByRelevance(hits, cfg.RelevanceThreshold)
		}

		fmt.Print("\nLégiRoute : ")
		for chunk := range generator.Stream(ctx, query, results) {
			fmt.Print(chunk)
		}
		fmt.Println()

		if len(results) > 0 {
			fmt.Println("\nSources :")
			for _, r := range results {
				fmt.Printf("  - Article %s (%s)\n", r.Article.Number, r.Article.CitationURL())
			}
		}

		if ctx.Err() != nil {
			break
		}
	}
}
