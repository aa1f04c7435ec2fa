package similarity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
	"github.com/saturnino-fabrica-de-software/verifica/internal/imaging"
	"github.com/saturnino-fabrica-de-software/verifica/internal/provider"
)

// EmbeddingCache stores embeddings by aligned-crop hash
type EmbeddingCache interface {
	Get(ctx context.Context, key string) ([]float64, bool, error)
	Set(ctx context.Context, key string, embedding []float64) error
}

// DeepStrategy compares cosine similarity of deep embeddings of aligned crops
type DeepStrategy struct {
	landmarks provider.LandmarkProvider
	model     provider.EmbeddingModel
	cache     EmbeddingCache
	faceSize  int
	logger    *slog.Logger
}

// DeepOption configures a DeepStrategy
type DeepOption func(*DeepStrategy)

// WithEmbeddingCache enables crop-hash caching of embeddings
func WithEmbeddingCache(cache EmbeddingCache) DeepOption {
	return func(d *DeepStrategy) {
		d.cache = cache
	}
}

// WithFaceSize sets the square crop side fed to the model
func WithFaceSize(size int) DeepOption {
	return func(d *DeepStrategy) {
		d.faceSize = size
	}
}

// NewDeepStrategy creates the deep strategy
func NewDeepStrategy(landmarks provider.LandmarkProvider, model provider.EmbeddingModel, logger *slog.Logger, opts ...DeepOption) *DeepStrategy {
	d := &DeepStrategy{
		landmarks: landmarks,
		model:     model,
		faceSize:  imaging.DefaultFaceSize,
		logger:    logger.With("component", "deep_strategy"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Available reports whether the embedding model can serve requests
func (d *DeepStrategy) Available(ctx context.Context) bool {
	return d.model.Available(ctx)
}

// Compare implements Scorer
func (d *DeepStrategy) Compare(ctx context.Context, imageA, imageB []byte) (domain.Comparison, error) {
	a, err := d.Embedding(ctx, imageA)
	if err != nil {
		return domain.Comparison{}, fmt.Errorf("image a: %w", err)
	}
	b, err := d.Embedding(ctx, imageB)
	if err != nil {
		return domain.Comparison{}, fmt.Errorf("image b: %w", err)
	}

	if len(a) != len(b) {
		return domain.Comparison{}, fmt.Errorf("embedding dimensions differ: %d vs %d", len(a), len(b))
	}

	return domain.Comparison{
		Similarity: Rescale(Cosine(a, b)),
		Strategy:   domain.StrategyDeep,
	}, nil
}

// Embedding detects the primary face, aligns it and embeds the crop
func (d *DeepStrategy) Embedding(ctx context.Context, image []byte) ([]float64, error) {
	crop, err := d.crop(ctx, image)
	if err != nil {
		return nil, err
	}

	key := cropKey(crop)
	if d.cache != nil {
		cached, ok, err := d.cache.Get(ctx, key)
		switch {
		case err != nil:
			d.logger.Warn("embedding cache read failed", "error", err)
		case ok:
			return cached, nil
		}
	}

	embedding, err := d.model.Embed(ctx, crop)
	if err != nil {
		return nil, domain.ErrModelUnavailable.WithError(err)
	}

	if d.cache != nil {
		if err := d.cache.Set(ctx, key, embedding); err != nil {
			d.logger.Warn("embedding cache write failed", "error", err)
		}
	}

	return embedding, nil
}

// crop returns the aligned face crop, or the plain detector box when the eye
// landmarks cannot define a rotation
func (d *DeepStrategy) crop(ctx context.Context, image []byte) ([]byte, error) {
	img, _, err := imaging.Decode(image)
	if err != nil {
		return nil, err
	}

	faces, err := d.landmarks.DetectFaces(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	face, ok := provider.Primary(faces)
	if !ok {
		return nil, domain.ErrNoFaceDetected
	}

	aligned, _, err := imaging.AlignFace(img, face, d.faceSize)
	switch {
	case err == nil:
		return imaging.EncodeJPEG(aligned)
	case !errors.Is(err, imaging.ErrDegenerateEyeLine):
		return nil, err
	}

	d.logger.Debug("alignment failed, using box crop", "error", err)
	box, err := imaging.Crop(img, face.BoundingBox)
	if err != nil {
		return nil, err
	}
	return imaging.EncodeJPEG(imaging.Resize(box, d.faceSize, d.faceSize))
}

func cropKey(crop []byte) string {
	sum := sha256.Sum256(crop)
	return hex.EncodeToString(sum[:])
}
