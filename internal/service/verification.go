package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/saturnino-fabrica-de-software/verifica/internal/audit"
	"github.com/saturnino-fabrica-de-software/verifica/internal/decision"
	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
	"github.com/saturnino-fabrica-de-software/verifica/internal/imaging"
	"github.com/saturnino-fabrica-de-software/verifica/internal/similarity"
)

// ProfileAuto selects the decision profile from the strategy actually used
const ProfileAuto = "auto"

// VerifyRequest carries the three face images of one attempt
type VerifyRequest struct {
	AttemptID    string
	DocumentFace []byte
	SelfieNear   []byte
	SelfieFar    []byte
	Person       domain.DocumentFields
}

// VerificationService scores the three pairs and applies the decision engine
type VerificationService struct {
	scorer  similarity.Scorer
	profile *decision.Profile
	audit   audit.Logger
	logger  *slog.Logger
}

// NewVerificationService builds the service. profileName is "auto", "deep"
// or "geometric"; empty means auto.
func NewVerificationService(scorer similarity.Scorer, profileName string, auditLogger audit.Logger, logger *slog.Logger) (*VerificationService, error) {
	s := &VerificationService{
		scorer: scorer,
		audit:  auditLogger,
		logger: logger.With("component", "verification_service"),
	}
	if s.audit == nil {
		s.audit = &audit.NoOpLogger{}
	}

	if profileName != "" && profileName != ProfileAuto {
		p, err := decision.ProfileByName(profileName)
		if err != nil {
			return nil, err
		}
		s.profile = &p
	}

	return s, nil
}

type pairScore struct {
	cmp domain.Comparison
	err error
}

// Verify computes doc-vs-near, doc-vs-far and near-vs-far concurrently. A
// pair that cannot be scored counts as 0 so the result is always terminal.
func (s *VerificationService) Verify(ctx context.Context, req VerifyRequest) (domain.VerificationResult, error) {
	images := map[string][]byte{
		"document_face": req.DocumentFace,
		"selfie_near":   req.SelfieNear,
		"selfie_far":    req.SelfieFar,
	}
	for name, img := range images {
		if err := imaging.Validate(img); err != nil {
			return domain.VerificationResult{}, domain.ErrInvalidImage.WithError(fmt.Errorf("%s: %w", name, err))
		}
	}

	var docNear, docFar, nearFar pairScore

	g, gctx := errgroup.WithContext(ctx)
	score := func(dst *pairScore, a, b []byte) {
		g.Go(func() error {
			dst.cmp, dst.err = s.scorer.Compare(gctx, a, b)
			return nil
		})
	}
	score(&docNear, req.DocumentFace, req.SelfieNear)
	score(&docFar, req.DocumentFace, req.SelfieFar)
	score(&nearFar, req.SelfieNear, req.SelfieFar)
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return domain.VerificationResult{}, domain.ErrProcessingTimeout.WithError(err)
	}

	for name, p := range map[string]*pairScore{"doc_near": &docNear, "doc_far": &docFar, "near_far": &nearFar} {
		if p.err != nil {
			s.logger.Warn("pair not scored, counting as zero",
				slog.String("attempt_id", req.AttemptID),
				slog.String("pair", name),
				slog.Any("error", p.err),
			)
			p.cmp = domain.Comparison{}
		}
	}

	profile := s.selectProfile(docNear.cmp, docFar.cmp, nearFar.cmp)
	result := decision.Decide(profile, docNear.cmp.Similarity, docFar.cmp.Similarity, nearFar.cmp.Similarity, req.Person)

	s.logDecision(ctx, req.AttemptID, result)

	return result, nil
}

// Compare scores a single pair of images
func (s *VerificationService) Compare(ctx context.Context, imageA, imageB []byte) (domain.Comparison, error) {
	for name, img := range map[string][]byte{"image_a": imageA, "image_b": imageB} {
		if err := imaging.Validate(img); err != nil {
			return domain.Comparison{}, domain.ErrInvalidImage.WithError(fmt.Errorf("%s: %w", name, err))
		}
	}
	return s.scorer.Compare(ctx, imageA, imageB)
}

// selectProfile uses the deep table only when every pair was scored by the deep strategy
func (s *VerificationService) selectProfile(pairs ...domain.Comparison) decision.Profile {
	if s.profile != nil {
		return *s.profile
	}
	for _, p := range pairs {
		if p.Strategy != domain.StrategyDeep {
			return decision.GeometricProfile
		}
	}
	return decision.DeepProfile
}

func (s *VerificationService) logDecision(ctx context.Context, attemptID string, result domain.VerificationResult) {
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

	err := s.audit.Log(ctx, audit.Event{
		AttemptID: attemptID,
		EventType: audit.EventVerificationDecided,
		Strategy:  result.ProfileKey,
		Success:   result.Match,
		Metadata: map[string]string{
			"tier":        string(result.Tier),
			"doc_vs_near": format(result.DocVsNear),
			"doc_vs_far":  format(result.DocVsFar),
			"near_vs_far": format(result.NearVsFar),
		},
	})
	if err != nil {
		s.logger.Warn("audit log failed", slog.Any("error", err))
	}
}
