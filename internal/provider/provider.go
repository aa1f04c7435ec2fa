package provider

import "context"

// LandmarkProvider detecta faces e seus pontos de referência
type LandmarkProvider interface {
	// DetectFaces returns every face found in the image, most confident first.
	// An empty slice means no face was found and is not an error.
	DetectFaces(ctx context.Context, image []byte) ([]FaceDetection, error)
}

// DocumentDetector localiza o cartão do documento dentro de uma foto
type DocumentDetector interface {
	// DetectDocument returns the card bounding box, or nil when no card is found
	DetectDocument(ctx context.Context, image []byte) (*BoundingBox, error)
}

// TextRecognizer reconhece linhas de texto em uma imagem
type TextRecognizer interface {
	// Recognize returns the best candidate for each detected line, top to bottom
	Recognize(ctx context.Context, image []byte, languageHints []string) ([]string, error)
}

// EmbeddingModel gera embeddings profundos a partir de recortes alinhados
type EmbeddingModel interface {
	// Available reports whether the model can currently serve Embed calls
	Available(ctx context.Context) bool

	// Embed returns a unit-L2 vector for an aligned face crop (JPEG bytes)
	Embed(ctx context.Context, alignedImage []byte) ([]float64, error)
}

// Point is a 2D point normalized to [0,1] within the image
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox represents an area in the image, normalized to [0,1]
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the box midpoint
func (b BoundingBox) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Expand grows the box by factor on each dimension around its center,
// clamped to the unit square.
func (b BoundingBox) Expand(factor float64) BoundingBox {
	dw := b.Width * factor / 2
	dh := b.Height * factor / 2

	x0 := clampUnit(b.X - dw)
	y0 := clampUnit(b.Y - dh)
	x1 := clampUnit(b.X + b.Width + dw)
	y1 := clampUnit(b.Y + b.Height + dh)

	return BoundingBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// LandmarkRegion names an ordered point set of the face
type LandmarkRegion string

const (
	RegionLeftEye      LandmarkRegion = "left_eye"
	RegionRightEye     LandmarkRegion = "right_eye"
	RegionLeftEyebrow  LandmarkRegion = "left_eyebrow"
	RegionRightEyebrow LandmarkRegion = "right_eyebrow"
	RegionNose         LandmarkRegion = "nose"
	RegionNoseCrest    LandmarkRegion = "nose_crest"
	RegionOuterLips    LandmarkRegion = "outer_lips"
	RegionInnerLips    LandmarkRegion = "inner_lips"
	RegionFaceContour  LandmarkRegion = "face_contour"
)

// FaceDetection is one detected face with landmarks and head pose
type FaceDetection struct {
	BoundingBox BoundingBox                `json:"bounding_box"`
	Landmarks   map[LandmarkRegion][]Point `json:"landmarks"`
	Yaw         float64                    `json:"yaw"`   // radians, left/right rotation
	Pitch       float64                    `json:"pitch"` // radians, up/down rotation
	Roll        float64                    `json:"roll"`  // radians, tilted rotation
	Confidence  float64                    `json:"confidence"`
	Expression  *Expression                `json:"expression,omitempty"`
}

// Expression carries detector-estimated facial attributes in [0,1].
// Detectors that cannot estimate them leave FaceDetection.Expression nil.
type Expression struct {
	LeftEyeOpenness  float64 `json:"left_eye_openness"`
	RightEyeOpenness float64 `json:"right_eye_openness"`
	SmileAmount      float64 `json:"smile_amount"`
	MouthOpenness    float64 `json:"mouth_openness"`
}

// HasLandmarks reports whether the regions needed for geometry are present
func (f FaceDetection) HasLandmarks() bool {
	for _, r := range []LandmarkRegion{RegionLeftEye, RegionRightEye, RegionNose, RegionOuterLips} {
		if len(f.Landmarks[r]) == 0 {
			return false
		}
	}
	return true
}

// Primary returns the most confident detection, or false when faces is empty
func Primary(faces []FaceDetection) (FaceDetection, bool) {
	if len(faces) == 0 {
		return FaceDetection{}, false
	}
	best := faces[0]
	for _, f := range faces[1:] {
		if f.Confidence > best.Confidence {
			best = f
		}
	}
	return best, true
}

// Centroid returns the mean of the points, or false for an empty set
func Centroid(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return Point{X: sx / n, Y: sy / n}, true
}
