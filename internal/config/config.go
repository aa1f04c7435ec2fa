package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database (optional, enables the embedding cache)
	DatabaseURL       string        `envconfig:"DATABASE_URL"`
	EmbeddingCacheTTL time.Duration `envconfig:"EMBEDDING_CACHE_TTL" default:"24h"`

	// Providers
	FaceProvider      string   `envconfig:"FACE_PROVIDER" default:"mock"`
	EmbeddingProvider string   `envconfig:"EMBEDDING_PROVIDER" default:"deepface"`
	DeepFaceURL       string   `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	AWSRegion         string   `envconfig:"AWS_REGION" default:"us-east-1"`
	TextLanguageHints []string `envconfig:"TEXT_LANGUAGE_HINTS" default:"es,en"`

	// Decision
	DecisionProfile string        `envconfig:"DECISION_PROFILE" default:"auto"`
	LivenessTimeout time.Duration `envconfig:"LIVENESS_TIMEOUT" default:"12s"`

	// Rate limiting
	RateLimitMax    int           `envconfig:"RATE_LIMIT_MAX" default:"120"`
	RateLimitWindow time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects unknown enum values and non-positive limits
func (c *Config) Validate() error {
	switch c.FaceProvider {
	case "mock", "rekognition":
	default:
		return fmt.Errorf("FACE_PROVIDER must be mock or rekognition, got %q", c.FaceProvider)
	}

	switch c.EmbeddingProvider {
	case "deepface", "none":
	default:
		return fmt.Errorf("EMBEDDING_PROVIDER must be deepface or none, got %q", c.EmbeddingProvider)
	}

	switch c.DecisionProfile {
	case "auto", "deep", "geometric":
	default:
		return fmt.Errorf("DECISION_PROFILE must be auto, deep or geometric, got %q", c.DecisionProfile)
	}

	if c.LivenessTimeout <= 0 {
		return fmt.Errorf("LIVENESS_TIMEOUT must be positive, got %s", c.LivenessTimeout)
	}
	if c.RateLimitMax <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive")
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// CacheEnabled reports whether a database is configured for the embedding cache
func (c *Config) CacheEnabled() bool {
	return c.DatabaseURL != ""
}
