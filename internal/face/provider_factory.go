package face

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/verifica/internal/config"
	"github.com/saturnino-fabrica-de-software/verifica/internal/provider"
	"github.com/saturnino-fabrica-de-software/verifica/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/verifica/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/verifica/internal/provider/rekognition"
)

// ProviderType defines supported landmark/text provider types
type ProviderType string

const (
	// ProviderTypeMock is the deterministic provider (local, for dev/test)
	ProviderTypeMock ProviderType = "mock"
	// ProviderTypeRekognition is the AWS Rekognition provider (cloud, for prod)
	ProviderTypeRekognition ProviderType = "rekognition"
)

// EmbeddingType defines supported deep embedding backends
type EmbeddingType string

const (
	// EmbeddingTypeDeepFace uses a DeepFace server for embeddings
	EmbeddingTypeDeepFace EmbeddingType = "deepface"
	// EmbeddingTypeNone disables deep scoring; geometric scoring is always used
	EmbeddingTypeNone EmbeddingType = "none"
)

// Providers groups the capabilities the verification pipeline consumes.
// Embeddings is nil when deep scoring is disabled.
type Providers struct {
	Landmarks  provider.LandmarkProvider
	Text       provider.TextRecognizer
	Documents  provider.DocumentDetector
	Embeddings provider.EmbeddingModel
}

// NewProviders creates the provider set based on configuration
//
// Environment variables:
//   - FACE_PROVIDER: "mock" or "rekognition" (default: "mock")
//   - EMBEDDING_PROVIDER: "deepface" or "none" (default: "deepface")
//   - DEEPFACE_URL: DeepFace API URL (default: "http://localhost:5005")
//   - AWS_REGION: AWS region for Rekognition (default: "us-east-1")
//   - AWS_ACCESS_KEY_ID: AWS credentials (via AWS SDK credential chain)
//   - AWS_SECRET_ACCESS_KEY: AWS credentials (via AWS SDK credential chain)
func NewProviders(ctx context.Context, cfg *config.Config) (*Providers, error) {
	var providers Providers

	switch ProviderType(cfg.FaceProvider) {
	case ProviderTypeRekognition:
		prov, err := createRekognitionProvider(ctx, cfg)
		if err != nil {
			return nil, err
		}
		providers.Landmarks, providers.Text, providers.Documents = prov, prov, prov

	case ProviderTypeMock, "":
		prov := mock.New()
		providers.Landmarks, providers.Text, providers.Documents = prov, prov, prov

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s)",
			cfg.FaceProvider, ProviderTypeMock, ProviderTypeRekognition)
	}

	switch EmbeddingType(cfg.EmbeddingProvider) {
	case EmbeddingTypeDeepFace, "":
		providers.Embeddings = createDeepFaceProvider(cfg)
	case EmbeddingTypeNone:
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: %s, %s)",
			cfg.EmbeddingProvider, EmbeddingTypeDeepFace, EmbeddingTypeNone)
	}

	return &providers, nil
}

// createRekognitionProvider creates an AWS Rekognition provider instance
func createRekognitionProvider(ctx context.Context, cfg *config.Config) (*rekognition.Provider, error) {
	rekogConfig := rekognition.DefaultConfig()
	if cfg.AWSRegion != "" {
		rekogConfig.Region = cfg.AWSRegion
	}

	prov, err := rekognition.NewProvider(ctx, rekogConfig)
	if err != nil {
		return nil, fmt.Errorf("create rekognition provider: %w", err)
	}

	return prov, nil
}

// createDeepFaceProvider creates a DeepFace provider instance
func createDeepFaceProvider(cfg *config.Config) *deepface.Provider {
	deepfaceConfig := deepface.DefaultConfig()

	// Use defaults for other fields (timeout, model, detector, retry)
	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}

	return deepface.NewProvider(deepfaceConfig)
}
