package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
)

// DocumentService interface for the service
type DocumentService interface {
	ProcessDocument(ctx context.Context, front, back []byte, strict bool) (domain.ProcessedDocument, error)
}

type DocumentHandler struct {
	service DocumentService
	logger  *slog.Logger
}

func NewDocumentHandler(service DocumentService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{service: service, logger: logger}
}

// Process POST /v1/documents - extract and cross-validate both sides
func (h *DocumentHandler) Process(c *fiber.Ctx) error {
	front, err := readImage(c, "front")
	if err != nil {
		return err
	}
	back, err := readImage(c, "back")
	if err != nil {
		return err
	}

	strict := c.QueryBool("strict", false)

	doc, err := h.service.ProcessDocument(c.UserContext(), front, back, strict)
	if err != nil {
		return err
	}

	return c.JSON(doc)
}
