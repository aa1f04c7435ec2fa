package similarity

import (
	"context"
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
	"github.com/saturnino-fabrica-de-software/verifica/internal/imaging"
	"github.com/saturnino-fabrica-de-software/verifica/internal/provider"
)

const (
	weightProportions = 0.4
	weightAngles      = 0.3
	weightPositions   = 0.3

	// positionCap limits the influence of a single outlier landmark
	positionCap = 0.5
	// positionScale is the landmark distance that zeroes agreement
	positionScale = 0.2

	epsilon = 1e-9
)

// Landmark names used by FacialEmbedding
const (
	PointLeftEye    = "left_eye"
	PointRightEye   = "right_eye"
	PointNose       = "nose"
	PointNoseTip    = "nose_tip"
	PointMouth      = "mouth"
	PointMouthLeft  = "mouth_left"
	PointMouthRight = "mouth_right"
	PointLeftBrow   = "left_brow"
	PointRightBrow  = "right_brow"
	PointJawLeft    = "jaw_left"
	PointJawRight   = "jaw_right"
	PointChin       = "chin"
)

// FacialEmbedding is the geometric description of one face. Points are
// normalized to the face bounding box; proportions use the interocular
// distance as unit; angles are signed radians.
type FacialEmbedding struct {
	Points      map[string]provider.Point `json:"points"`
	Proportions map[string]float64        `json:"proportions"`
	Angles      map[string]float64        `json:"angles"`
}

// GeometricStrategy compares landmark geometry; it needs no embedding model
type GeometricStrategy struct {
	landmarks provider.LandmarkProvider
}

// NewGeometricStrategy creates the geometric strategy
func NewGeometricStrategy(landmarks provider.LandmarkProvider) *GeometricStrategy {
	return &GeometricStrategy{landmarks: landmarks}
}

// Compare implements Scorer
func (g *GeometricStrategy) Compare(ctx context.Context, imageA, imageB []byte) (domain.Comparison, error) {
	a, err := g.Extract(ctx, imageA)
	if err != nil {
		return domain.Comparison{}, err
	}
	b, err := g.Extract(ctx, imageB)
	if err != nil {
		return domain.Comparison{}, err
	}

	return domain.Comparison{
		Similarity: GeometricSimilarity(a, b),
		Strategy:   domain.StrategyGeometric,
	}, nil
}

// Extract detects the primary face and builds its FacialEmbedding
func (g *GeometricStrategy) Extract(ctx context.Context, image []byte) (FacialEmbedding, error) {
	if err := imaging.Validate(image); err != nil {
		return FacialEmbedding{}, err
	}

	faces, err := g.landmarks.DetectFaces(ctx, image)
	if err != nil {
		return FacialEmbedding{}, fmt.Errorf("detect faces: %w", err)
	}

	face, ok := provider.Primary(faces)
	if !ok {
		return FacialEmbedding{}, domain.ErrNoFaceDetected
	}

	return NewFacialEmbedding(face)
}

// NewFacialEmbedding derives points, proportions and angles from a detection.
// Eyes, nose and outer lips are required; brows and contour are optional.
func NewFacialEmbedding(face provider.FaceDetection) (FacialEmbedding, error) {
	if !face.HasLandmarks() {
		return FacialEmbedding{}, domain.ErrNoLandmarks
	}
	box := face.BoundingBox
	if box.Width <= 0 || box.Height <= 0 {
		return FacialEmbedding{}, domain.ErrNoLandmarks.WithError(fmt.Errorf("empty bounding box"))
	}

	norm := func(p provider.Point) provider.Point {
		return provider.Point{X: (p.X - box.X) / box.Width, Y: (p.Y - box.Y) / box.Height}
	}

	points := make(map[string]provider.Point)
	centroid := func(name string, region provider.LandmarkRegion) {
		if c, ok := provider.Centroid(face.Landmarks[region]); ok {
			points[name] = norm(c)
		}
	}

	centroid(PointLeftEye, provider.RegionLeftEye)
	centroid(PointRightEye, provider.RegionRightEye)
	centroid(PointNose, provider.RegionNose)
	centroid(PointMouth, provider.RegionOuterLips)
	centroid(PointLeftBrow, provider.RegionLeftEyebrow)
	centroid(PointRightBrow, provider.RegionRightEyebrow)

	if crest := face.Landmarks[provider.RegionNoseCrest]; len(crest) > 0 {
		points[PointNoseTip] = norm(crest[len(crest)-1])
	} else {
		points[PointNoseTip] = norm(lowest(face.Landmarks[provider.RegionNose]))
	}

	lips := face.Landmarks[provider.RegionOuterLips]
	points[PointMouthLeft] = norm(leftmost(lips))
	points[PointMouthRight] = norm(rightmost(lips))

	if contour := face.Landmarks[provider.RegionFaceContour]; len(contour) >= 3 {
		points[PointJawLeft] = norm(contour[0])
		points[PointJawRight] = norm(contour[len(contour)-1])
		points[PointChin] = norm(lowest(contour))
	}

	le, re := points[PointLeftEye], points[PointRightEye]
	unit := dist(le, re)
	if unit < epsilon {
		return FacialEmbedding{}, domain.ErrNoLandmarks.WithError(fmt.Errorf("eyes coincide"))
	}

	nose, mouth := points[PointNose], points[PointMouth]
	eyeMid := provider.Point{X: (le.X + re.X) / 2, Y: (le.Y + re.Y) / 2}

	proportions := map[string]float64{
		"left_eye_nose":     dist(le, nose) / unit,
		"right_eye_nose":    dist(re, nose) / unit,
		"eye_nose_symmetry": dist(le, nose) / math.Max(dist(re, nose), epsilon),
		"eye_mouth":         dist(eyeMid, mouth) / unit,
		"mouth_width":       dist(points[PointMouthLeft], points[PointMouthRight]) / unit,
	}

	angles := map[string]float64{
		"eye_nose_eye":  angleAt(nose, le, re),
		"eye_mouth_eye": angleAt(mouth, le, re),
	}

	if chin, ok := points[PointChin]; ok {
		proportions["face_height"] = dist(eyeMid, chin) / unit
		proportions["jaw_width"] = dist(points[PointJawLeft], points[PointJawRight]) / unit
		angles["nose_mouth_chin"] = angleAt(mouth, nose, chin)
	}

	return FacialEmbedding{
		Points:      points,
		Proportions: proportions,
		Angles:      angles,
	}, nil
}

// GeometricSimilarity weights proportion, angle and position agreement
func GeometricSimilarity(a, b FacialEmbedding) float64 {
	score := weightProportions*ratioAgreement(a.Proportions, b.Proportions) +
		weightAngles*ratioAgreement(a.Angles, b.Angles) +
		weightPositions*positionAgreement(a.Points, b.Points)
	return clamp01(score)
}

// ratioAgreement is the mean of 1 - min(|Δ|/max(|v1|,|v2|,ε), 1) over shared keys
func ratioAgreement(a, b map[string]float64) float64 {
	var sum float64
	var n int
	for k, v1 := range a {
		v2, ok := b[k]
		if !ok {
			continue
		}
		scale := math.Max(math.Max(math.Abs(v1), math.Abs(v2)), epsilon)
		sum += 1 - math.Min(math.Abs(v1-v2)/scale, 1)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// positionAgreement is the mean of 1 - min(d, 0.5)/0.2 over shared points
func positionAgreement(a, b map[string]provider.Point) float64 {
	var sum float64
	var n int
	for k, p1 := range a {
		p2, ok := b[k]
		if !ok {
			continue
		}
		sum += 1 - math.Min(dist(p1, p2), positionCap)/positionScale
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func dist(a, b provider.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// angleAt is the signed angle at vertex from a to b
func angleAt(vertex, a, b provider.Point) float64 {
	v1x, v1y := a.X-vertex.X, a.Y-vertex.Y
	v2x, v2y := b.X-vertex.X, b.Y-vertex.Y
	cross := v1x*v2y - v1y*v2x
	dot := v1x*v2x + v1y*v2y
	return math.Atan2(cross, dot)
}

func lowest(points []provider.Point) provider.Point {
	best := points[0]
	for _, p := range points[1:] {
		if p.Y > best.Y {
			best = p
		}
	}
	return best
}

func leftmost(points []provider.Point) provider.Point {
	best := points[0]
	for _, p := range points[1:] {
		if p.X < best.X {
			best = p
		}
	}
	return best
}

func rightmost(points []provider.Point) provider.Point {
	best := points[0]
	for _, p := range points[1:] {
		if p.X > best.X {
			best = p
		}
	}
	return best
}
