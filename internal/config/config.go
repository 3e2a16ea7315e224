package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the support-call engine.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	CallIdleTimeout       time.Duration
	MaxTroubleshootRounds int

	SimilarityThreshold float64
	SearchTopK          int
	EmbeddingDim        int

	ProviderMode     string
	ProviderTimeout  time.Duration
	OpenAIAPIKey     string
	OpenAIChatModel  string
	OpenAIEmbedModel string

	DatabaseURL string
	SeedTickets bool

	AnalyticsURL     string
	AnalyticsTimeout time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:              envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:      envOrDefault("APP_METRICS_NAMESPACE", "supportline"),
		AllowAnyOrigin:        false,
		ShutdownTimeout:       15 * time.Second,
		CallIdleTimeout:       5 * time.Minute,
		MaxTroubleshootRounds: 5,
		SimilarityThreshold:   0.8,
		SearchTopK:            5,
		EmbeddingDim:          1536,
		ProviderMode:          envOrDefault("PROVIDER_MODE", "auto"),
		ProviderTimeout:       8 * time.Second,
		OpenAIAPIKey:          trimmedEnv("OPENAI_API_KEY"),
		OpenAIChatModel:       envOrDefault("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		OpenAIEmbedModel:      envOrDefault("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		DatabaseURL:           trimmedEnv("DATABASE_URL"),
		AnalyticsURL:          trimmedEnv("ANALYTICS_URL"),
		AnalyticsTimeout:      5 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CallIdleTimeout, err = durationFromEnv("CALL_IDLE_TIMEOUT", cfg.CallIdleTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ProviderTimeout, err = durationFromEnv("PROVIDER_TIMEOUT", cfg.ProviderTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AnalyticsTimeout, err = durationFromEnv("ANALYTICS_TIMEOUT", cfg.AnalyticsTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxTroubleshootRounds, err = intFromEnv("MAX_TROUBLESHOOT_ROUNDS", cfg.MaxTroubleshootRounds)
	if err != nil {
		return Config{}, err
	}
	cfg.SearchTopK, err = intFromEnv("SEARCH_TOP_K", cfg.SearchTopK)
	if err != nil {
		return Config{}, err
	}
	cfg.EmbeddingDim, err = intFromEnv("EMBEDDING_DIM", cfg.EmbeddingDim)
	if err != nil {
		return Config{}, err
	}
	cfg.SimilarityThreshold, err = floatFromEnv("SIMILARITY_THRESHOLD", cfg.SimilarityThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.SeedTickets, err = boolFromEnv("SEED_TICKETS", cfg.SeedTickets)
	if err != nil {
		return Config{}, err
	}

	if cfg.CallIdleTimeout < 30*time.Second {
		return Config{}, fmt.Errorf("CALL_IDLE_TIMEOUT must be at least 30s")
	}
	if cfg.MaxTroubleshootRounds <= 0 {
		return Config{}, fmt.Errorf("MAX_TROUBLESHOOT_ROUNDS must be positive")
	}
	if cfg.SearchTopK <= 0 {
		return Config{}, fmt.Errorf("SEARCH_TOP_K must be positive")
	}
	if cfg.EmbeddingDim <= 0 {
		return Config{}, fmt.Errorf("EMBEDDING_DIM must be positive")
	}
	if cfg.SimilarityThreshold < -1 || cfg.SimilarityThreshold > 1 {
		return Config{}, fmt.Errorf("SIMILARITY_THRESHOLD must lie in [-1, 1]")
	}
	if cfg.ProviderTimeout <= 0 {
		return Config{}, fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
