package liveness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
	"github.com/saturnino-fabrica-de-software/verifica/internal/provider"
)

const (
	// BlinkDebounce is the minimum gap between two counted blinks
	BlinkDebounce = 200 * time.Millisecond
	// PollInterval is the frame cadence of Run (~30 fps)
	PollInterval = 33 * time.Millisecond
	// NoFrameBackoff is the wait when the source had no frame
	NoFrameBackoff = 100 * time.Millisecond
	// DefaultTimeout is the challenge budget when none is given
	DefaultTimeout = 12 * time.Second
)

// FrameSource delivers camera frames to Run. NextFrame returns a nil frame and
// nil error when nothing is available yet, and an error once the source is gone.
type FrameSource interface {
	NextFrame(ctx context.Context) ([]byte, error)
}

// Progress is the challenge counter snapshot of a session
type Progress struct {
	Frames      int  `json:"frames"`
	BlinkCount  int  `json:"blink_count"`
	TurnedLeft  bool `json:"turned_left"`
	TurnedRight bool `json:"turned_right"`
	Smiled      bool `json:"smiled"`
}

// session is the mutable per-attempt state, owned by a single Tracker
type session struct {
	id         uuid.UUID
	history    History
	frames     int
	blinkCount int
	lastBlink  time.Time
	eyesClosed bool
	turnLeft   bool
	turnRight  bool
	smiled     bool
}

// Tracker runs one liveness session at a time. It is not safe for concurrent
// use: frames must be fed in arrival order from a single goroutine.
type Tracker struct {
	landmarks provider.LandmarkProvider
	logger    *slog.Logger
	now       func() time.Time
	observer  func(FaceState, Progress)
	session   session
}

// TrackerOption configures a Tracker
type TrackerOption func(*Tracker)

// WithFrameObserver registers a callback invoked after every processed frame
func WithFrameObserver(fn func(FaceState, Progress)) TrackerOption {
	return func(t *Tracker) {
		t.observer = fn
	}
}

// WithClock overrides the frame timestamp source
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates a tracker in the idle state
func NewTracker(landmarks provider.LandmarkProvider, logger *slog.Logger, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		landmarks: landmarks,
		logger:    logger.With("component", "liveness"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.Reset()
	return t
}

// Reset clears history and counters and starts a new session id
func (t *Tracker) Reset() {
	t.session = session{id: uuid.New()}
}

// SessionID identifies the current attempt in logs and events
func (t *Tracker) SessionID() uuid.UUID {
	return t.session.id
}

// Progress returns the current counters
func (t *Tracker) Progress() Progress {
	return Progress{
		Frames:      t.session.frames,
		BlinkCount:  t.session.blinkCount,
		TurnedLeft:  t.session.turnLeft,
		TurnedRight: t.session.turnRight,
		Smiled:      t.session.smiled,
	}
}

// History returns the retained states, oldest first
func (t *Tracker) History() []FaceState {
	return t.session.history.States()
}

// ProcessFrame detects the primary face, records its state and updates the
// challenge counters. Returns domain.ErrNoFaceDetected when the frame has no face.
func (t *Tracker) ProcessFrame(ctx context.Context, image []byte) (FaceState, error) {
	faces, err := t.landmarks.DetectFaces(ctx, image)
	if err != nil {
		return FaceState{}, fmt.Errorf("detect faces: %w", err)
	}

	face, ok := provider.Primary(faces)
	if !ok {
		return FaceState{}, domain.ErrNoFaceDetected
	}

	return t.Observe(NewFaceState(face, t.now())), nil
}

// Observe records an already computed state
func (t *Tracker) Observe(state FaceState) FaceState {
	t.session.history.Push(state)
	t.session.frames++
	t.updateChallengeProgress(state)

	if t.observer != nil {
		t.observer(state, t.Progress())
	}
	return state
}

func (t *Tracker) updateChallengeProgress(state FaceState) {
	s := &t.session

	closed := state.IsBlinking()
	if closed && !s.eyesClosed {
		if s.lastBlink.IsZero() || state.Timestamp.Sub(s.lastBlink) >= BlinkDebounce {
			s.blinkCount++
			s.lastBlink = state.Timestamp
		}
	}
	s.eyesClosed = closed

	if state.IsTurnedLeft() {
		s.turnLeft = true
	}
	if state.IsTurnedRight() {
		s.turnRight = true
	}
	if state.IsSmiling() {
		s.smiled = true
	}
}

// CheckChallenge reports whether the session already satisfies c
func (t *Tracker) CheckChallenge(c ChallengeType) bool {
	switch c {
	case ChallengeBlink:
		return t.session.blinkCount >= RequiredBlinks
	case ChallengeTurnLeft:
		return t.session.turnLeft
	case ChallengeTurnRight:
		return t.session.turnRight
	case ChallengeSmile:
		return t.session.smiled
	default:
		return false
	}
}

// Status is the terminal state of a Run
type Status string

const (
	StatusPassed   Status = "passed"
	StatusFailed   Status = "failed"
	StatusTimedOut Status = "timed_out"
)

// Result is the outcome of an active challenge
type Result struct {
	SessionID uuid.UUID     `json:"session_id"`
	Challenge ChallengeType `json:"challenge"`
	Status    Status        `json:"status"`
	Passed    bool          `json:"passed"`
	Reason    string        `json:"reason,omitempty"`
	Progress  Progress      `json:"progress"`
	Duration  time.Duration `json:"duration_ns"`

	cause error
}

// Err maps a non-passing result to its domain error. A provider failure
// keeps its own AppError, or surfaces as ErrInternal wrapping the cause.
func (r Result) Err() error {
	if r.cause != nil {
		var appErr *domain.AppError
		if errors.As(r.cause, &appErr) {
			return r.cause
		}
		return domain.ErrInternal.WithError(r.cause)
	}

	switch r.Status {
	case StatusPassed:
		return nil
	case StatusTimedOut:
		return domain.ErrProcessingTimeout.WithError(errors.New(r.Reason))
	default:
		return domain.ErrLivenessFailed.WithError(errors.New(r.Reason))
	}
}

// Run polls source until challenge is satisfied or timeout elapses. Frames
// without a face are skipped; any other frame error ends the run as failed.
// The frame in flight when the budget expires is discarded.
func (t *Tracker) Run(ctx context.Context, challenge ChallengeType, source FrameSource, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	t.Reset()
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	finishWith := func(status Status, reason string, cause error) Result {
		res := Result{
			SessionID: t.session.id,
			Challenge: challenge,
			Status:    status,
			Passed:    status == StatusPassed,
			Reason:    reason,
			Progress:  t.Progress(),
			Duration:  time.Since(started),
			cause:     cause,
		}
		t.logger.Info("liveness challenge finished",
			"session_id", res.SessionID,
			"challenge", challenge,
			"status", status,
			"frames", res.Progress.Frames,
			"duration_ms", res.Duration.Milliseconds(),
		)
		return res
	}
	finish := func(status Status, reason string) Result {
		return finishWith(status, reason, nil)
	}

	timedOut := func() Result {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return finish(StatusTimedOut, fmt.Sprintf("Tiempo agotado: no se detectó la acción \"%s\"", challenge.Instruction()))
		}
		return finish(StatusFailed, "Prueba de vida cancelada")
	}

	if !challenge.Valid() {
		return finish(StatusFailed, fmt.Sprintf("Reto desconocido: %s", challenge))
	}

	for {
		if ctx.Err() != nil {
			return timedOut()
		}

		frame, err := source.NextFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return timedOut()
			}
			return finish(StatusFailed, "La cámara dejó de enviar imágenes")
		}

		wait := PollInterval
		if frame == nil {
			wait = NoFrameBackoff
		} else {
			_, err := t.ProcessFrame(ctx, frame)
			switch {
			case ctx.Err() != nil:
				return timedOut()
			case errors.Is(err, domain.ErrNoFaceDetected):
				t.logger.Debug("frame skipped", "session_id", t.session.id, "error", err)
			case err != nil:
				t.logger.Warn("frame processing failed", "session_id", t.session.id, "error", err)
				return finishWith(StatusFailed, "No fue posible analizar la imagen", err)
			case t.CheckChallenge(challenge):
				return finish(StatusPassed, "")
			}
		}

		select {
		case <-ctx.Done():
			return timedOut()
		case <-time.After(wait):
		}
	}
}
