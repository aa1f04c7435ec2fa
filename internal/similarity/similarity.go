// Package similarity scores how alike two face images are, in [0,1].
package similarity

import (
	"context"
	"log/slog"
	"math"

	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
)

const (
	// cosineFloor is the raw face cosine treated as "unrelated"
	cosineFloor = 0.2
)

// Scorer compares two face images
type Scorer interface {
	Compare(ctx context.Context, imageA, imageB []byte) (domain.Comparison, error)
}

// Cosine returns dot(a,b)/(|a||b|), or 0 when either norm is zero or the
// dimensions differ
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rescale maps the observed face cosine range [0.2,1] onto [0,1]
func Rescale(cosine float64) float64 {
	return clamp01((cosine - cosineFloor) / (1 - cosineFloor))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// FallbackScorer prefers the deep strategy when its model is available and
// falls back to the geometric strategy for that call when the deep path fails.
// Deep errors are logged, never returned.
type FallbackScorer struct {
	deep      *DeepStrategy
	geometric *GeometricStrategy
	logger    *slog.Logger
}

// NewFallbackScorer builds the scorer; deep may be nil to always use geometry
func NewFallbackScorer(deep *DeepStrategy, geometric *GeometricStrategy, logger *slog.Logger) *FallbackScorer {
	return &FallbackScorer{
		deep:      deep,
		geometric: geometric,
		logger:    logger.With("component", "similarity"),
	}
}

// DeepAvailable reports whether the next Compare will try the deep strategy
func (s *FallbackScorer) DeepAvailable(ctx context.Context) bool {
	return s.deep != nil && s.deep.Available(ctx)
}

// Compare implements Scorer
func (s *FallbackScorer) Compare(ctx context.Context, imageA, imageB []byte) (domain.Comparison, error) {
	if s.DeepAvailable(ctx) {
		cmp, err := s.deep.Compare(ctx, imageA, imageB)
		if err == nil {
			return cmp, nil
		}
		if ctx.Err() != nil {
			return domain.Comparison{}, ctx.Err()
		}
		s.logger.Debug("deep strategy failed, using geometric", "error", err)
	}

	return s.geometric.Compare(ctx, imageA, imageB)
}

var (
	_ Scorer = (*FallbackScorer)(nil)
	_ Scorer = (*DeepStrategy)(nil)
	_ Scorer = (*GeometricStrategy)(nil)
)
