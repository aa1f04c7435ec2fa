// Package liveness tracks anti-spoofing challenges over a stream of frames.
package liveness

import (
	"math"
	"time"

	"github.com/saturnino-fabrica-de-software/verifica/internal/provider"
)

const (
	// EyeClosedThreshold is the openness under which an eye counts as closed
	EyeClosedThreshold = 0.3
	// TurnThreshold is the yaw, in radians, past which the head counts as turned
	TurnThreshold = 0.2
	// SmileThreshold is the smile amount above which the subject is smiling
	SmileThreshold = 0.3
	// MouthOpenThreshold is the mouth openness above which the mouth is open
	MouthOpenThreshold = 0.5
	// FacingThreshold bounds |yaw| and |pitch| for a frontal pose
	FacingThreshold = 0.2
)

// FaceState is the per-frame snapshot used by the tracker
type FaceState struct {
	LeftEyeOpenness  float64   `json:"left_eye_openness"`
	RightEyeOpenness float64   `json:"right_eye_openness"`
	Yaw              float64   `json:"yaw"`
	Pitch            float64   `json:"pitch"`
	Roll             float64   `json:"roll"`
	SmileAmount      float64   `json:"smile_amount"`
	MouthOpenness    float64   `json:"mouth_openness"`
	Timestamp        time.Time `json:"timestamp"`
}

// IsBlinking requires both eyes closed at once
func (s FaceState) IsBlinking() bool {
	return s.LeftEyeOpenness < EyeClosedThreshold && s.RightEyeOpenness < EyeClosedThreshold
}

func (s FaceState) IsTurnedLeft() bool {
	return s.Yaw > TurnThreshold
}

func (s FaceState) IsTurnedRight() bool {
	return s.Yaw < -TurnThreshold
}

func (s FaceState) IsSmiling() bool {
	return s.SmileAmount > SmileThreshold
}

func (s FaceState) IsMouthOpen() bool {
	return s.MouthOpenness > MouthOpenThreshold
}

func (s FaceState) IsFacingCamera() bool {
	return math.Abs(s.Yaw) < FacingThreshold && math.Abs(s.Pitch) < FacingThreshold
}

// NewFaceState builds a FaceState from a detection. When the detector does not
// estimate expressions, eye and mouth openness come from landmark aspect ratios.
func NewFaceState(face provider.FaceDetection, ts time.Time) FaceState {
	state := FaceState{
		Yaw:       face.Yaw,
		Pitch:     face.Pitch,
		Roll:      face.Roll,
		Timestamp: ts,
	}

	if face.Expression != nil {
		state.LeftEyeOpenness = face.Expression.LeftEyeOpenness
		state.RightEyeOpenness = face.Expression.RightEyeOpenness
		state.SmileAmount = face.Expression.SmileAmount
		state.MouthOpenness = face.Expression.MouthOpenness
		return state
	}

	state.LeftEyeOpenness = eyeOpenness(face.Landmarks[provider.RegionLeftEye])
	state.RightEyeOpenness = eyeOpenness(face.Landmarks[provider.RegionRightEye])
	state.MouthOpenness = mouthOpenness(face.Landmarks[provider.RegionInnerLips])
	return state
}

// aspectRatio is height over width of the points' extent
func aspectRatio(points []provider.Point) (float64, bool) {
	if len(points) < 3 {
		return 0, false
	}
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	width := maxX - minX
	if width <= 0 {
		return 0, false
	}
	return (maxY - minY) / width, true
}

// eyeOpenness maps an eye aspect ratio of 0.1 (shut) .. 0.3 (open) onto [0,1].
// Unknown eyes count as open so that missing points never fake a blink.
func eyeOpenness(points []provider.Point) float64 {
	ratio, ok := aspectRatio(points)
	if !ok {
		return 1
	}
	return clamp01((ratio - 0.1) / 0.2)
}

// mouthOpenness maps an inner-lip aspect ratio of 0 .. 0.5 onto [0,1]
func mouthOpenness(points []provider.Point) float64 {
	ratio, ok := aspectRatio(points)
	if !ok {
		return 0
	}
	return clamp01(ratio / 0.5)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
