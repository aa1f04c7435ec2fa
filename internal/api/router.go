package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/verifica/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/verifica/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/verifica/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/verifica/internal/ws"
)

// Dependencies are the services the HTTP surface exposes. DB is optional and
// only used by the readiness check.
type Dependencies struct {
	Documents     handler.DocumentService
	Verifications handler.VerificationService
	Liveness      LivenessService
	Model         handler.ModelChecker
	DB            handler.Pinger
	Version       string
	RateLimit     middleware.RateLimiterConfig
}

// LivenessService serves both the passive burst and the interactive challenge
type LivenessService interface {
	handler.PassiveLivenessService
	ws.ChallengeRunner
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
	wsHub       *ws.Hub
	cancelHub   context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Verifica API",
		BodyLimit:    64 * 1024 * 1024,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID",
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var (
		model   handler.ModelChecker
		db      handler.Pinger
		version string
	)
	if r.deps != nil {
		model, db, version = r.deps.Model, r.deps.DB, r.deps.Version
	}
	healthHandler := handler.NewHealthHandler(model, db, version)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil {
		return
	}

	v1 := r.app.Group("/v1")

	limiterCfg := r.deps.RateLimit
	if limiterCfg.Max <= 0 || limiterCfg.Window <= 0 {
		limiterCfg = middleware.DefaultRateLimiterConfig()
	}
	r.rateLimiter = middleware.NewRateLimiter(limiterCfg)
	v1.Use(r.rateLimiter.Handler())

	documentHandler := handler.NewDocumentHandler(r.deps.Documents, r.logger)
	v1.Post("/documents", documentHandler.Process)

	faceHandler := handler.NewFaceHandler(r.deps.Verifications, r.logger)
	v1.Post("/faces/compare", faceHandler.Compare)
	v1.Post("/verifications", faceHandler.Verify)

	livenessHandler := handler.NewLivenessHandler(r.deps.Liveness, r.logger)
	v1.Post("/liveness/passive", livenessHandler.Passive)

	// Interactive challenge over WebSocket
	r.wsHub = ws.NewHub()
	hubCtx, hubCancel := context.WithCancel(context.Background())
	r.cancelHub = hubCancel
	go r.wsHub.Run(hubCtx)

	v1.Get("/liveness/ws", ws.UpgradeMiddleware(), ws.Handler(r.wsHub, r.deps.Liveness, r.logger))
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	// Closes every open challenge session
	if r.cancelHub != nil {
		r.cancelHub()
	}

	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
