package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/verifica/internal/liveness"
)

// PassiveLivenessService interface for the service
type PassiveLivenessService interface {
	PassiveCheck(ctx context.Context, frames [][]byte) (liveness.PassiveResult, error)
}

type LivenessHandler struct {
	service PassiveLivenessService
	logger  *slog.Logger
}

func NewLivenessHandler(service PassiveLivenessService, logger *slog.Logger) *LivenessHandler {
	return &LivenessHandler{service: service, logger: logger}
}

// Passive POST /v1/liveness/passive - a burst of frames in repeated "frames" parts
func (h *LivenessHandler) Passive(c *fiber.Ctx) error {
	frames, err := readImages(c, "frames")
	if err != nil {
		return err
	}

	res, err := h.service.PassiveCheck(c.UserContext(), frames)
	if err != nil {
		return err
	}

	return c.JSON(res)
}
