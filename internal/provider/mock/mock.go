package mock

import (
	"context"
	"crypto/sha256"
	"math"
	"sync"

	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
	"github.com/saturnino-fabrica-de-software/verifica/internal/provider"
)

const (
	embeddingDimension = 512
	minImageSize       = 1000
	// jitter is the largest landmark offset derived from the image hash
	jitter = 0.01
)

// SampleFrontText é o texto de uma credencial INE fictícia usado em desenvolvimento
var SampleFrontText = []string{
	"INSTITUTO NACIONAL ELECTORAL",
	"MEXICO",
	"CREDENCIAL PARA VOTAR",
	"NOMBRE",
	"GARCIA RODRIGUEZ JUAN CARLOS",
	"DOMICILIO",
	"C JUAREZ 123 COL CENTRO",
	"CUAUHTEMOC, CDMX 06000",
	"CLAVE DE ELECTOR GRRDJN85010109H100",
	"CURP GARC850101HDFRRL09",
	"SECCION 1234 VIGENCIA 2030",
}

// SampleBackText é o verso correspondente a SampleFrontText
var SampleBackText = []string{
	"IDMEX1234567890<<1234",
	"GARC850101HDFRRL09",
	"EMISION 03",
}

// Provider implementa os contratos de provider de forma determinística para testes e desenvolvimento
type Provider struct {
	// TextLines é retornado por Recognize
	TextLines []string
	// BackTextLines é retornado por Recognize para imagens marcadas com MarkBack
	BackTextLines []string
	// EmbeddingsEnabled controla Available
	EmbeddingsEnabled bool

	mu    sync.RWMutex
	backs map[[sha256.Size]byte]struct{}
}

// New cria uma nova instância do MockProvider
func New() *Provider {
	return &Provider{
		TextLines:         SampleFrontText,
		BackTextLines:     SampleBackText,
		EmbeddingsEnabled: true,
		backs:             make(map[[sha256.Size]byte]struct{}),
	}
}

// MarkBack registra image como verso da credencial: DetectDocument não acha
// cartão nela (a foto já é o recorte) e Recognize devolve BackTextLines
func (p *Provider) MarkBack(image []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backs == nil {
		p.backs = make(map[[sha256.Size]byte]struct{})
	}
	p.backs[sha256.Sum256(image)] = struct{}{}
}

func (p *Provider) isBack(image []byte) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.backs[sha256.Sum256(image)]
	return ok
}

// regionOrder fixa a ordem de perturbação para que a mesma imagem gere os mesmos pontos
var regionOrder = []provider.LandmarkRegion{
	provider.RegionLeftEye,
	provider.RegionRightEye,
	provider.RegionLeftEyebrow,
	provider.RegionRightEyebrow,
	provider.RegionNose,
	provider.RegionOuterLips,
	provider.RegionFaceContour,
}

// template é um rosto frontal normalizado à imagem inteira
var template = map[provider.LandmarkRegion][]provider.Point{
	provider.RegionLeftEye:      {{X: 0.33, Y: 0.40}, {X: 0.37, Y: 0.38}, {X: 0.41, Y: 0.40}, {X: 0.37, Y: 0.42}},
	provider.RegionRightEye:     {{X: 0.59, Y: 0.40}, {X: 0.63, Y: 0.38}, {X: 0.67, Y: 0.40}, {X: 0.63, Y: 0.42}},
	provider.RegionLeftEyebrow:  {{X: 0.30, Y: 0.33}, {X: 0.36, Y: 0.31}, {X: 0.42, Y: 0.33}},
	provider.RegionRightEyebrow: {{X: 0.58, Y: 0.33}, {X: 0.64, Y: 0.31}, {X: 0.70, Y: 0.33}},
	provider.RegionNose:         {{X: 0.46, Y: 0.55}, {X: 0.50, Y: 0.57}, {X: 0.54, Y: 0.55}},
	provider.RegionOuterLips:    {{X: 0.40, Y: 0.68}, {X: 0.50, Y: 0.66}, {X: 0.60, Y: 0.68}, {X: 0.50, Y: 0.72}},
	provider.RegionFaceContour:  {{X: 0.22, Y: 0.45}, {X: 0.28, Y: 0.70}, {X: 0.50, Y: 0.88}, {X: 0.72, Y: 0.70}, {X: 0.78, Y: 0.45}},
}

// DetectFaces simula detecção de um rosto frontal com landmarks derivados do hash da imagem
func (p *Provider) DetectFaces(ctx context.Context, image []byte) ([]provider.FaceDetection, error) {
	if len(image) < minImageSize {
		return nil, domain.ErrInvalidImage
	}

	hash := sha256.Sum256(image)
	landmarks := make(map[provider.LandmarkRegion][]provider.Point, len(template))
	i := 0
	for _, region := range regionOrder {
		points := template[region]
		moved := make([]provider.Point, len(points))
		for j, pt := range points {
			dx := (float64(hash[(i+2*j)%len(hash)])/255 - 0.5) * 2 * jitter
			dy := (float64(hash[(i+2*j+1)%len(hash)])/255 - 0.5) * 2 * jitter
			moved[j] = provider.Point{X: pt.X + dx, Y: pt.Y + dy}
		}
		landmarks[region] = moved
		i += 3
	}

	return []provider.FaceDetection{
		{
			BoundingBox: provider.BoundingBox{
				X:      0.2,
				Y:      0.25,
				Width:  0.6,
				Height: 0.65,
			},
			Landmarks:  landmarks,
			Yaw:        (float64(hash[0])/255 - 0.5) * 0.1,
			Pitch:      (float64(hash[1])/255 - 0.5) * 0.1,
			Confidence: 0.99,
			Expression: &provider.Expression{
				LeftEyeOpenness:  0.9,
				RightEyeOpenness: 0.9,
				SmileAmount:      0.1,
				MouthOpenness:    0.05,
			},
		},
	}, nil
}

// DetectDocument retorna a imagem inteira como cartão
func (p *Provider) DetectDocument(ctx context.Context, image []byte) (*provider.BoundingBox, error) {
	if len(image) < minImageSize {
		return nil, domain.ErrInvalidImage
	}
	if p.isBack(image) {
		return nil, nil
	}
	return &provider.BoundingBox{X: 0, Y: 0, Width: 1, Height: 1}, nil
}

// Recognize retorna TextLines, ou BackTextLines para imagens marcadas como verso
func (p *Provider) Recognize(ctx context.Context, image []byte, languageHints []string) ([]string, error) {
	if len(image) < minImageSize {
		return nil, domain.ErrInvalidImage
	}
	source := p.TextLines
	if p.isBack(image) {
		source = p.BackTextLines
	}
	lines := make([]string, len(source))
	copy(lines, source)
	return lines, nil
}

// Available informa se Embed está habilitado
func (p *Provider) Available(ctx context.Context) bool {
	return p.EmbeddingsEnabled
}

// Embed gera embedding determinístico baseado no hash da imagem
func (p *Provider) Embed(ctx context.Context, alignedImage []byte) ([]float64, error) {
	if len(alignedImage) == 0 {
		return nil, domain.ErrInvalidImage
	}
	return generateEmbedding(alignedImage), nil
}

// generateEmbedding gera embedding determinístico baseado no hash da imagem
func generateEmbedding(image []byte) []float64 {
	hash := sha256.Sum256(image)
	embedding := make([]float64, embeddingDimension)
	hashLen := len(hash)

	for i := 0; i < embeddingDimension; i++ {
		idx := i % hashLen
		//nolint:gosec // idx is always < hashLen due to modulo operation
		embedding[i] = (float64(hash[idx])/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	for i := range embedding {
		embedding[i] /= norm
	}

	return embedding
}

var (
	_ provider.LandmarkProvider = (*Provider)(nil)
	_ provider.DocumentDetector = (*Provider)(nil)
	_ provider.TextRecognizer   = (*Provider)(nil)
	_ provider.EmbeddingModel   = (*Provider)(nil)
)
