package handler

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/verifica/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
	"github.com/saturnino-fabrica-de-software/verifica/internal/service"
)

// VerificationService interface for the service
type VerificationService interface {
	Verify(ctx context.Context, req service.VerifyRequest) (domain.VerificationResult, error)
	Compare(ctx context.Context, imageA, imageB []byte) (domain.Comparison, error)
}

// FaceHandler handles face comparison and full verification
type FaceHandler struct {
	service VerificationService
	logger  *slog.Logger
}

func NewFaceHandler(service VerificationService, logger *slog.Logger) *FaceHandler {
	return &FaceHandler{service: service, logger: logger}
}

// Compare POST /v1/faces/compare
func (h *FaceHandler) Compare(c *fiber.Ctx) error {
	imageA, err := readImage(c, "image_a")
	if err != nil {
		return err
	}
	imageB, err := readImage(c, "image_b")
	if err != nil {
		return err
	}

	cmp, err := h.service.Compare(c.UserContext(), imageA, imageB)
	if err != nil {
		return err
	}

	return c.JSON(cmp)
}

// Verify POST /v1/verifications
func (h *FaceHandler) Verify(c *fiber.Ctx) error {
	docFace, err := readImage(c, "document_face")
	if err != nil {
		return err
	}
	near, err := readImage(c, "selfie_near")
	if err != nil {
		return err
	}
	far, err := readImage(c, "selfie_far")
	if err != nil {
		return err
	}

	result, err := h.service.Verify(c.UserContext(), service.VerifyRequest{
		AttemptID:    attemptID(c),
		DocumentFace: docFace,
		SelfieNear:   near,
		SelfieFar:    far,
		Person:       personFromForm(c),
	})
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// personFromForm reads the optional pass-through fields, named as in the JSON output
func personFromForm(c *fiber.Ctx) domain.DocumentFields {
	v := func(key string) string { return strings.TrimSpace(c.FormValue(key)) }
	return domain.DocumentFields{
		FullName:       v("nombre_completo"),
		Address:        v("domicilio"),
		CURP:           strings.ToUpper(v("curp")),
		ElectorKey:     strings.ToUpper(v("clave_elector")),
		BirthDate:      v("fecha_nacimiento"),
		Sex:            v("sexo"),
		State:          v("estado"),
		Section:        v("seccion"),
		ValidityYear:   v("vigencia"),
		IssuanceNumber: v("numero_emision"),
	}
}

func attemptID(c *fiber.Ctx) string {
	if id, ok := c.Locals(middleware.LocalRequestID).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
