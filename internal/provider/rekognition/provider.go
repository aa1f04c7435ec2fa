package rekognition

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/verifica/internal/provider"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100

	maxDocumentLabels          = 25
	minDocumentLabelConfidence = 60
)

// Provider implements landmark detection, text recognition and document
// localization on top of AWS Rekognition
type Provider struct {
	api    API
	config Config
}

// Ensure Provider implements the provider interfaces at compile time
var (
	_ provider.LandmarkProvider = (*Provider)(nil)
	_ provider.TextRecognizer   = (*Provider)(nil)
	_ provider.DocumentDetector = (*Provider)(nil)
)

// NewProvider creates a new Rekognition provider using the default credential chain
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	api, err := NewAPI(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return NewProviderWithAPI(api, cfg), nil
}

// NewProviderWithAPI creates a provider over an existing API implementation
func NewProviderWithAPI(api API, cfg Config) *Provider {
	return &Provider{api: api, config: cfg}
}

// validateImage checks if image data is valid for Rekognition processing
func validateImage(image []byte) error {
	if len(image) == 0 {
		return ErrInvalidImage
	}
	if len(image) < minImageSize {
		return fmt.Errorf("%w: image too small (%d bytes, minimum %d)", ErrInvalidImage, len(image), minImageSize)
	}
	if len(image) > maxImageSize {
		return fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, len(image), maxImageSize)
	}
	return nil
}

// DetectFaces detects faces in an image using AWS Rekognition DetectFaces API
// Returns an empty slice if no faces are detected (not an error)
func (p *Provider) DetectFaces(ctx context.Context, image []byte) ([]provider.FaceDetection, error) {
	if err := validateImage(image); err != nil {
		return nil, err
	}

	input := &rekognition.DetectFacesInput{
		Image: &types.Image{
			Bytes: image,
		},
		Attributes: []types.Attribute{types.AttributeAll},
	}

	output, err := p.api.DetectFaces(ctx, input)
	if err != nil {
		return nil, parseAPIError("detect faces", err)
	}

	faces := make([]provider.FaceDetection, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		if detail.BoundingBox == nil {
			continue
		}
		faces = append(faces, toFaceDetection(detail))
	}

	sort.SliceStable(faces, func(i, j int) bool {
		return faces[i].Confidence > faces[j].Confidence
	})

	return faces, nil
}

// Recognize returns the LINE detections top to bottom.
// Rekognition detects Latin script on its own, so languageHints is not forwarded.
func (p *Provider) Recognize(ctx context.Context, image []byte, languageHints []string) ([]string, error) {
	if err := validateImage(image); err != nil {
		return nil, err
	}

	output, err := p.api.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: image},
	})
	if err != nil {
		return nil, parseAPIError("detect text", err)
	}

	type line struct {
		text      string
		top, left float32
	}

	lines := make([]line, 0, len(output.TextDetections))
	for _, det := range output.TextDetections {
		if det.Type != types.TextTypesLine || det.DetectedText == nil {
			continue
		}
		if det.Confidence != nil && *det.Confidence < p.config.MinTextConfidence {
			continue
		}
		l := line{text: *det.DetectedText}
		if det.Geometry != nil && det.Geometry.BoundingBox != nil {
			l.top = aws.ToFloat32(det.Geometry.BoundingBox.Top)
			l.left = aws.ToFloat32(det.Geometry.BoundingBox.Left)
		}
		lines = append(lines, l)
	}

	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].top != lines[j].top {
			return lines[i].top < lines[j].top
		}
		return lines[i].left < lines[j].left
	})

	result := make([]string, len(lines))
	for i, l := range lines {
		result[i] = l.text
	}
	return result, nil
}

// DetectDocument returns the most confident card instance, or nil when none is labeled
func (p *Provider) DetectDocument(ctx context.Context, image []byte) (*provider.BoundingBox, error) {
	if err := validateImage(image); err != nil {
		return nil, err
	}

	output, err := p.api.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: image},
		MaxLabels:     aws.Int32(maxDocumentLabels),
		MinConfidence: aws.Float32(minDocumentLabelConfidence),
	})
	if err != nil {
		return nil, parseAPIError("detect labels", err)
	}

	var (
		best     *provider.BoundingBox
		bestConf float32
	)
	for _, label := range output.Labels {
		if !p.isDocumentLabel(aws.ToString(label.Name)) {
			continue
		}
		for _, inst := range label.Instances {
			if inst.BoundingBox == nil {
				continue
			}
			conf := aws.ToFloat32(inst.Confidence)
			if best != nil && conf <= bestConf {
				continue
			}
			box := toBoundingBox(inst.BoundingBox)
			best, bestConf = &box, conf
		}
	}

	return best, nil
}

func (p *Provider) isDocumentLabel(name string) bool {
	for _, accepted := range p.config.DocumentLabels {
		if strings.EqualFold(accepted, name) {
			return true
		}
	}
	return false
}

func toBoundingBox(b *types.BoundingBox) provider.BoundingBox {
	return provider.BoundingBox{
		X:      float64(aws.ToFloat32(b.Left)),
		Y:      float64(aws.ToFloat32(b.Top)),
		Width:  float64(aws.ToFloat32(b.Width)),
		Height: float64(aws.ToFloat32(b.Height)),
	}
}

func toFaceDetection(detail types.FaceDetail) provider.FaceDetection {
	face := provider.FaceDetection{
		BoundingBox: toBoundingBox(detail.BoundingBox),
		Landmarks:   toRegions(detail.Landmarks),
		Confidence:  float64(aws.ToFloat32(detail.Confidence)) / 100,
	}

	if detail.Pose != nil {
		face.Yaw = degToRad(aws.ToFloat32(detail.Pose.Yaw))
		face.Pitch = degToRad(aws.ToFloat32(detail.Pose.Pitch))
		face.Roll = degToRad(aws.ToFloat32(detail.Pose.Roll))
	}

	if detail.EyesOpen != nil {
		eyes := openness(detail.EyesOpen.Value, detail.EyesOpen.Confidence)
		face.Expression = &provider.Expression{
			LeftEyeOpenness:  eyes,
			RightEyeOpenness: eyes,
		}
		if detail.Smile != nil {
			face.Expression.SmileAmount = openness(detail.Smile.Value, detail.Smile.Confidence)
		}
		if detail.MouthOpen != nil {
			face.Expression.MouthOpenness = openness(detail.MouthOpen.Value, detail.MouthOpen.Confidence)
		}
	}

	return face
}

// openness turns a boolean attribute with confidence (0-100) into a [0,1] amount
func openness(value bool, confidence *float32) float64 {
	c := float64(aws.ToFloat32(confidence)) / 100
	if value {
		return c
	}
	return 1 - c
}

func degToRad(deg float32) float64 {
	return float64(deg) * math.Pi / 180
}
