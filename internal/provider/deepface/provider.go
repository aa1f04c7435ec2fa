package deepface

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/verifica/internal/provider"
)

// Provider implements provider.EmbeddingModel using DeepFace API
type Provider struct {
	client *Client
	config Config

	mu        sync.Mutex
	checkedAt time.Time
	available bool
	now       func() time.Time
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
		config: config,
		now:    time.Now,
	}
}

// Available checks the DeepFace service, reusing the last answer for HealthTTL
func (p *Provider) Available(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.checkedAt.IsZero() && p.now().Sub(p.checkedAt) < p.config.HealthTTL {
		return p.available
	}

	p.available = p.client.Health(ctx) == nil
	p.checkedAt = p.now()
	return p.available
}

// Embed extracts a unit-length embedding from an aligned face crop
func (p *Provider) Embed(ctx context.Context, alignedImage []byte) ([]float64, error) {
	if len(alignedImage) == 0 {
		return nil, ErrEmptyImage
	}

	imageBase64 := base64.StdEncoding.EncodeToString(alignedImage)

	resp, err := p.client.Represent(ctx, imageBase64)
	if err != nil {
		return nil, fmt.Errorf("embed face: %w", err)
	}

	if len(resp.Results) == 0 {
		return nil, ErrNoFaceInResponse
	}

	embedding := resp.Results[0].Embedding
	if p.config.Dimension > 0 && len(embedding) != p.config.Dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), p.config.Dimension)
	}

	return NormalizeEmbedding(embedding), nil
}

// Ensure Provider implements provider.EmbeddingModel
var _ provider.EmbeddingModel = (*Provider)(nil)

// NormalizeEmbedding scales the vector to unit L2 length.
// Zero and empty vectors are returned unchanged.
func NormalizeEmbedding(embedding []float64) []float64 {
	var norm float64
	for _, v := range embedding {
		norm += v * v
	}

	if norm == 0 {
		return embedding
	}

	norm = math.Sqrt(norm)
	normalized := make([]float64, len(embedding))
	for i, v := range embedding {
		normalized[i] = v / norm
	}

	return normalized
}
