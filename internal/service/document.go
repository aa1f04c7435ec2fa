// Package service orchestrates the providers and the pure decision core for
// one verification attempt.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/saturnino-fabrica-de-software/verifica/internal/audit"
	"github.com/saturnino-fabrica-de-software/verifica/internal/document"
	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
	"github.com/saturnino-fabrica-de-software/verifica/internal/imaging"
	"github.com/saturnino-fabrica-de-software/verifica/internal/provider"
)

// DocumentService reads both sides of a voter credential
type DocumentService struct {
	text     provider.TextRecognizer
	detector provider.DocumentDetector
	hints    []string
	audit    audit.Logger
	logger   *slog.Logger
}

// NewDocumentService builds the service; detector may be nil, in which case
// recognition runs on the full photo.
func NewDocumentService(
	text provider.TextRecognizer,
	detector provider.DocumentDetector,
	languageHints []string,
	auditLogger audit.Logger,
	logger *slog.Logger,
) *DocumentService {
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}
	return &DocumentService{
		text:     text,
		detector: detector,
		hints:    languageHints,
		audit:    auditLogger,
		logger:   logger.With("component", "document_service"),
	}
}

// ProcessDocument recognizes both sides concurrently, extracts the fields and
// cross-validates them. In strict mode a failed cross-validation returns the
// document together with domain.ErrInconsistentDocumentData.
func (s *DocumentService) ProcessDocument(ctx context.Context, front, back []byte, strict bool) (domain.ProcessedDocument, error) {
	for side, img := range map[string][]byte{"front": front, "back": back} {
		if err := imaging.Validate(img); err != nil {
			return domain.ProcessedDocument{}, domain.ErrInvalidImage.WithError(fmt.Errorf("%s: %w", side, err))
		}
	}

	var frontLines, backLines []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lines, err := s.recognize(gctx, front)
		if err != nil {
			return fmt.Errorf("recognize front: %w", err)
		}
		frontLines = lines
		return nil
	})
	g.Go(func() error {
		lines, err := s.recognize(gctx, back)
		if err != nil {
			return fmt.Errorf("recognize back: %w", err)
		}
		backLines = lines
		return nil
	})

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.ProcessedDocument{}, domain.ErrProcessingTimeout.WithError(ctxErr)
		}
		return domain.ProcessedDocument{}, err
	}

	doc := document.Process(frontLines, backLines)

	event := audit.Event{
		EventType: audit.EventDocumentProcessed,
		Success:   doc.Validation.Valid,
		Metadata: map[string]string{
			"front_lines":         strconv.Itoa(len(frontLines)),
			"back_lines":          strconv.Itoa(len(backLines)),
			"curp_matches":        strconv.FormatBool(doc.Validation.CURPMatches),
			"elector_key_matches": strconv.FormatBool(doc.Validation.ElectorKeyMatches),
		},
	}
	if !doc.Validation.Valid {
		event.Error = strings.Join(doc.Validation.Mismatches, "; ")
	}
	if err := s.audit.Log(ctx, event); err != nil {
		s.logger.Warn("audit log failed", slog.Any("error", err))
	}

	if strict && !doc.Validation.Valid {
		return doc, domain.ErrInconsistentDocumentData.WithError(errors.New(event.Error))
	}

	return doc, nil
}

// recognize crops the card when a detector is present and reads its lines
func (s *DocumentService) recognize(ctx context.Context, img []byte) ([]string, error) {
	return s.text.Recognize(ctx, s.cropCard(ctx, img), s.hints)
}

// cropCard falls back to the original photo on any detection problem
func (s *DocumentService) cropCard(ctx context.Context, img []byte) []byte {
	if s.detector == nil {
		return img
	}

	box, err := s.detector.DetectDocument(ctx, img)
	if err != nil {
		s.logger.Debug("document detection failed, using full image", slog.Any("error", err))
		return img
	}
	if box == nil {
		return img
	}

	cropped, err := imaging.CropJPEG(img, *box)
	if err != nil {
		s.logger.Debug("document crop failed, using full image", slog.Any("error", err))
		return img
	}
	return cropped
}
