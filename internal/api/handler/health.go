package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readyTimeout = 2 * time.Second

// ModelChecker reports whether deep scoring is currently possible
type ModelChecker interface {
	DeepAvailable(ctx context.Context) bool
}

// Pinger checks an optional dependency such as the cache database
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	model   ModelChecker
	db      Pinger
	version string
}

// NewHealthHandler builds the handler; db may be nil when no cache is configured
func NewHealthHandler(model ModelChecker, db Pinger, version string) *HealthHandler {
	return &HealthHandler{model: model, db: db, version: version}
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Ready always answers 200: without the embedding model or the cache the
// service still scores with geometry, so it reports "degraded".
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ready", Checks: map[string]string{}}

	if h.model != nil && h.model.DeepAvailable(ctx) {
		resp.Checks["embedding_model"] = "available"
	} else {
		resp.Checks["embedding_model"] = "unavailable"
		resp.Status = "degraded"
	}

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			resp.Checks["embedding_cache"] = "unavailable"
			resp.Status = "degraded"
		} else {
			resp.Checks["embedding_cache"] = "available"
		}
	}

	return c.JSON(resp)
}
