package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/verifica/internal/api"
	"github.com/saturnino-fabrica-de-software/verifica/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/verifica/internal/audit"
	"github.com/saturnino-fabrica-de-software/verifica/internal/cache"
	"github.com/saturnino-fabrica-de-software/verifica/internal/config"
	"github.com/saturnino-fabrica-de-software/verifica/internal/database"
	"github.com/saturnino-fabrica-de-software/verifica/internal/face"
	"github.com/saturnino-fabrica-de-software/verifica/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/verifica/internal/service"
	"github.com/saturnino-fabrica-de-software/verifica/internal/similarity"
)

const (
	version         = "1.0.0"
	janitorInterval = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Verifica API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("face_provider", cfg.FaceProvider),
		slog.String("embedding_provider", cfg.EmbeddingProvider),
		slog.String("decision_profile", cfg.DecisionProfile),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := face.NewProviders(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create providers: %w", err)
	}

	deps := &api.Dependencies{
		Version: version,
		RateLimit: middleware.RateLimiterConfig{
			Max:          cfg.RateLimitMax,
			Window:       cfg.RateLimitWindow,
			KeyGenerator: middleware.DefaultRateLimiterConfig().KeyGenerator,
		},
	}

	// Embedding cache (optional)
	var deepOpts []similarity.DeepOption
	if cfg.CacheEnabled() {
		pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		embeddingCache := cache.NewEmbeddingCache(pool, "deepface/"+deepface.DefaultConfig().Model, cfg.EmbeddingCacheTTL)
		deepOpts = append(deepOpts, similarity.WithEmbeddingCache(embeddingCache))
		deps.DB = pool

		janitor := cache.NewJanitor(embeddingCache, janitorInterval, logger)
		go janitor.Run(ctx)

		logger.Info("embedding cache enabled", slog.Duration("ttl", cfg.EmbeddingCacheTTL))
	}

	var deep *similarity.DeepStrategy
	if providers.Embeddings != nil {
		deep = similarity.NewDeepStrategy(providers.Landmarks, providers.Embeddings, logger, deepOpts...)
	}
	scorer := similarity.NewFallbackScorer(deep, similarity.NewGeometricStrategy(providers.Landmarks), logger)
	deps.Model = scorer

	auditLogger := audit.NewSlogLogger(logger)

	verifications, err := service.NewVerificationService(scorer, cfg.DecisionProfile, auditLogger, logger)
	if err != nil {
		return fmt.Errorf("failed to create verification service: %w", err)
	}
	deps.Verifications = verifications
	deps.Documents = service.NewDocumentService(providers.Text, providers.Documents, cfg.TextLanguageHints, auditLogger, logger)
	deps.Liveness = service.NewLivenessService(providers.Landmarks, cfg.LivenessTimeout, auditLogger, logger)

	// Setup router
	router := api.NewRouter(logger, deps)
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out")
	}

	logger.Info("server stopped")
	return nil
}
