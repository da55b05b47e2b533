// Package config builds the process configuration from the environment, with
// optional .env bootstrap. The resulting value is constructed once at startup
// and passed explicitly into each component; core logic never reads the
// environment itself.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/legiroute/legiroute/pkg/fn"
)

// Config is the full runtime configuration surface.
type Config struct {
	// API credential for the embedding/generation service.
	GoogleAPIKey string

	// Vector collection.
	QdrantAddr    string
	Collection    string
	EmbeddingDims int

	// Models.
	EmbeddingModel  string
	GenerationModel string
	ClassifierModel string

	// Indexing pipeline.
	BatchSize           int
	SleepBetweenBatches time.Duration
	MaxRetries          int
	RetryMinWait        time.Duration
	RetryMaxWait        time.Duration
	RetryMultiplier     float64

	// Retrieval.
	DefaultTopK        int
	RelevanceThreshold float64

	// Generation.
	GenerationTemperature float32
	GenerationMaxTokens   int32
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		GoogleAPIKey: os.Getenv("GOOGLE_API_KEY"),

		QdrantAddr:    envOr("QDRANT_ADDR", "localhost:6334"),
		Collection:    envOr("COLLECTION_NAME", "traffic_law_v1"),
		EmbeddingDims: envInt("EMBEDDING_DIMS", 3072),

		EmbeddingModel:  envOr("EMBEDDING_MODEL", "gemini-embedding-001"),
		GenerationModel: envOr("GENERATION_MODEL", "gemini-2.5-flash"),
		ClassifierModel: envOr("CLASSIFIER_MODEL", "gemini-2.5-flash-lite"),

		BatchSize:           envInt("BATCH_SIZE", 5),
		SleepBetweenBatches: envSeconds("SLEEP_BETWEEN_BATCHES", 5),
		MaxRetries:          envInt("MAX_RETRIES", 20),
		RetryMinWait:        envSeconds("RETRY_MIN_WAIT", 10),
		RetryMaxWait:        envSeconds("RETRY_MAX_WAIT", 120),
		RetryMultiplier:     envFloat("RETRY_MULTIPLIER", 2),

		DefaultTopK:        envInt("DEFAULT_TOP_K", 5),
		RelevanceThreshold: envFloat("RELEVANCE_THRESHOLD", 1.1),

		GenerationTemperature: float32(envFloat("GENERATION_TEMPERATURE", 0.3)),
		GenerationMaxTokens:   int32(envInt("GENERATION_MAX_TOKENS", 1024)),
	}
}

// RetryOpts maps the retry settings onto the fn retry policy.
func (c *Config) RetryOpts() fn.RetryOpts {
	return fn.RetryOpts{
		MaxAttempts: c.MaxRetries,
		MinWait:     c.RetryMinWait,
		MaxWait:     c.RetryMaxWait,
		Multiplier:  c.RetryMultiplier,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envSeconds(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Second
}
