package liveness

import (
	"context"
	"errors"
	"fmt"

	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
)

const (
	// MinPassiveFrames is the minimum burst length accepted by QuickCheck
	MinPassiveFrames = 5
	// MinValidFrames is how many frames of the burst must contain a face
	MinValidFrames = 3
	// MicroMovementThreshold is the summed variance separating a live face from a replay
	MicroMovementThreshold = 0.001
)

// PassiveResult is the outcome of QuickCheck
type PassiveResult struct {
	Passed      bool    `json:"passed"`
	Reason      string  `json:"reason,omitempty"`
	Variance    float64 `json:"variance"`
	Frames      int     `json:"frames"`
	ValidFrames int     `json:"valid_frames"`
}

// QuickCheck looks for natural micro-movement in a short burst: the variances
// of yaw, pitch and left-eye openness are summed and compared to
// MicroMovementThreshold. It resets the session. Frames without a face are
// skipped; the error is non-nil when ctx ends or a frame fails for any other
// reason.
func (t *Tracker) QuickCheck(ctx context.Context, frames [][]byte) (PassiveResult, error) {
	t.Reset()

	res := PassiveResult{Frames: len(frames)}
	if len(frames) < MinPassiveFrames {
		res.Reason = fmt.Sprintf("Se requieren al menos %d imágenes, se recibieron %d", MinPassiveFrames, len(frames))
		return res, nil
	}

	states := make([]FaceState, 0, len(frames))
	for _, frame := range frames {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		state, err := t.ProcessFrame(ctx, frame)
		if errors.Is(err, domain.ErrNoFaceDetected) {
			t.logger.Debug("passive frame skipped", "session_id", t.session.id, "error", err)
			continue
		}
		if err != nil {
			return res, err
		}
		states = append(states, state)
	}

	res.ValidFrames = len(states)
	if len(states) < MinValidFrames {
		res.Reason = fmt.Sprintf("Rostro detectado en %d de %d imágenes, se requieren %d", len(states), len(frames), MinValidFrames)
		return res, nil
	}

	yaw := make([]float64, len(states))
	pitch := make([]float64, len(states))
	eye := make([]float64, len(states))
	for i, s := range states {
		yaw[i], pitch[i], eye[i] = s.Yaw, s.Pitch, s.LeftEyeOpenness
	}

	res.Variance = variance(yaw) + variance(pitch) + variance(eye)
	if res.Variance > MicroMovementThreshold {
		res.Passed = true
	} else {
		res.Reason = "Posible suplantación: no se detectó movimiento natural (foto o video)"
	}

	t.logger.Info("passive liveness evaluated",
		"session_id", t.session.id,
		"passed", res.Passed,
		"variance", res.Variance,
		"valid_frames", res.ValidFrames,
	)

	return res, nil
}

// variance is the population variance of xs
func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var sum float64
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return sum / float64(len(xs))
}
