package liveness

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
	"github.com/saturnino-fabrica-de-software/verifica/internal/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedLandmarks answers DetectFaces from a frame-content lookup
type scriptedLandmarks struct {
	faces map[string]provider.FaceDetection
	err   error
}

func (s *scriptedLandmarks) DetectFaces(ctx context.Context, image []byte) ([]provider.FaceDetection, error) {
	if s.err != nil {
		return nil, s.err
	}
	face, ok := s.faces[string(image)]
	if !ok {
		return []provider.FaceDetection{}, nil
	}
	return []provider.FaceDetection{face}, nil
}

// sliceSource hands out frames in order, then reports nothing available
type sliceSource struct {
	frames [][]byte
	err    error
}

func (s *sliceSource) NextFrame(ctx context.Context) ([]byte, error) {
	if len(s.frames) == 0 {
		return nil, s.err
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func detection(leftEye, rightEye, yaw, pitch, smile float64) provider.FaceDetection {
	return provider.FaceDetection{
		BoundingBox: provider.BoundingBox{X: 0.2, Y: 0.2, Width: 0.5, Height: 0.5},
		Yaw:         yaw,
		Pitch:       pitch,
		Confidence:  0.99,
		Expression: &provider.Expression{
			LeftEyeOpenness:  leftEye,
			RightEyeOpenness: rightEye,
			SmileAmount:      smile,
		},
	}
}

func TestFaceState_Predicates(t *testing.T) {
	tests := []struct {
		name      string
		state     FaceState
		blinking  bool
		left      bool
		right     bool
		smiling   bool
		mouthOpen bool
		facing    bool
	}{
		{
			name:   "neutral frontal",
			state:  FaceState{LeftEyeOpenness: 0.9, RightEyeOpenness: 0.9},
			facing: true,
		},
		{
			name:     "both eyes closed",
			state:    FaceState{LeftEyeOpenness: 0.1, RightEyeOpenness: 0.05},
			blinking: true,
			facing:   true,
		},
		{
			name:   "single eye closed is a wink, not a blink",
			state:  FaceState{LeftEyeOpenness: 0.1, RightEyeOpenness: 0.9},
			facing: true,
		},
		{
			name:  "turned left",
			state: FaceState{LeftEyeOpenness: 1, RightEyeOpenness: 1, Yaw: 0.35},
			left:  true,
		},
		{
			name:  "turned right",
			state: FaceState{LeftEyeOpenness: 1, RightEyeOpenness: 1, Yaw: -0.35},
			right: true,
		},
		{
			name:      "smiling with open mouth",
			state:     FaceState{LeftEyeOpenness: 1, RightEyeOpenness: 1, SmileAmount: 0.6, MouthOpenness: 0.7},
			smiling:   true,
			mouthOpen: true,
			facing:    true,
		},
		{
			name:  "looking down",
			state: FaceState{LeftEyeOpenness: 1, RightEyeOpenness: 1, Pitch: 0.4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.blinking, tt.state.IsBlinking())
			assert.Equal(t, tt.left, tt.state.IsTurnedLeft())
			assert.Equal(t, tt.right, tt.state.IsTurnedRight())
			assert.Equal(t, tt.smiling, tt.state.IsSmiling())
			assert.Equal(t, tt.mouthOpen, tt.state.IsMouthOpen())
			assert.Equal(t, tt.facing, tt.state.IsFacingCamera())
		})
	}
}

func TestNewFaceState_FromLandmarks(t *testing.T) {
	openEye := []provider.Point{{X: 0.30, Y: 0.40}, {X: 0.35, Y: 0.385}, {X: 0.40, Y: 0.40}, {X: 0.35, Y: 0.42}}
	closedEye := []provider.Point{{X: 0.60, Y: 0.40}, {X: 0.65, Y: 0.399}, {X: 0.70, Y: 0.40}, {X: 0.65, Y: 0.402}}

	face := provider.FaceDetection{
		Yaw: 0.1,
		Landmarks: map[provider.LandmarkRegion][]provider.Point{
			provider.RegionLeftEye:  openEye,
			provider.RegionRightEye: closedEye,
		},
	}

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := NewFaceState(face, ts)

	assert.InDelta(t, 1.0, state.LeftEyeOpenness, 1e-9)
	assert.InDelta(t, 0.0, state.RightEyeOpenness, 1e-9)
	assert.Zero(t, state.MouthOpenness)
	assert.Equal(t, 0.1, state.Yaw)
	assert.Equal(t, ts, state.Timestamp)

	t.Run("missing eye counts as open", func(t *testing.T) {
		delete(face.Landmarks, provider.RegionRightEye)
		state := NewFaceState(face, ts)
		assert.Equal(t, 1.0, state.RightEyeOpenness)
		assert.False(t, state.IsBlinking())
	})
}

func TestHistory_Eviction(t *testing.T) {
	var h History
	base := time.Unix(0, 0)

	_, ok := h.Last()
	assert.False(t, ok)

	for i := 0; i < HistoryCapacity+5; i++ {
		h.Push(FaceState{Timestamp: base.Add(time.Duration(i) * time.Second)})
	}

	assert.Equal(t, HistoryCapacity, h.Len())

	states := h.States()
	require.Len(t, states, HistoryCapacity)
	assert.Equal(t, base.Add(5*time.Second), states[0].Timestamp)
	assert.Equal(t, base.Add(time.Duration(HistoryCapacity+4)*time.Second), states[HistoryCapacity-1].Timestamp)

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, states[HistoryCapacity-1], last)

	h.Reset()
	assert.Zero(t, h.Len())
}

func TestTracker_HistoryIsBounded(t *testing.T) {
	tracker := NewTracker(&scriptedLandmarks{}, testLogger())
	base := time.Unix(0, 0)

	for i := 0; i < 500; i++ {
		tracker.Observe(FaceState{LeftEyeOpenness: 1, RightEyeOpenness: 1, Timestamp: base.Add(time.Duration(i) * PollInterval)})
	}

	assert.Len(t, tracker.History(), HistoryCapacity)
	assert.Equal(t, 500, tracker.Progress().Frames)
}

func TestTracker_BlinkCounting(t *testing.T) {
	base := time.Unix(1000, 0)
	at := func(ms int) time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }
	open := func(ms int) FaceState { return FaceState{LeftEyeOpenness: 0.9, RightEyeOpenness: 0.9, Timestamp: at(ms)} }
	closed := func(ms int) FaceState { return FaceState{LeftEyeOpenness: 0.1, RightEyeOpenness: 0.1, Timestamp: at(ms)} }
	wink := func(ms int) FaceState { return FaceState{LeftEyeOpenness: 0.1, RightEyeOpenness: 0.9, Timestamp: at(ms)} }

	tests := []struct {
		name   string
		frames []FaceState
		want   int
	}{
		{
			name:   "single eye closed never counts",
			frames: []FaceState{open(0), wink(33), wink(66), open(99), wink(400)},
			want:   0,
		},
		{
			name:   "held blink counts once",
			frames: []FaceState{open(0), closed(33), closed(66), closed(99), closed(132), open(165)},
			want:   1,
		},
		{
			name:   "flutter inside debounce counts once",
			frames: []FaceState{open(0), closed(33), open(66), closed(100), open(133)},
			want:   1,
		},
		{
			name:   "two blinks past debounce",
			frames: []FaceState{open(0), closed(33), open(66), open(200), closed(300), open(333)},
			want:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker(&scriptedLandmarks{}, testLogger())
			for _, f := range tt.frames {
				tracker.Observe(f)
			}
			assert.Equal(t, tt.want, tracker.Progress().BlinkCount)
			assert.Equal(t, tt.want >= RequiredBlinks, tracker.CheckChallenge(ChallengeBlink))
		})
	}
}

func TestTracker_StickyFlags(t *testing.T) {
	tracker := NewTracker(&scriptedLandmarks{}, testLogger())
	now := time.Unix(0, 0)

	tracker.Observe(FaceState{LeftEyeOpenness: 1, RightEyeOpenness: 1, Yaw: 0.3, Timestamp: now})
	tracker.Observe(FaceState{LeftEyeOpenness: 1, RightEyeOpenness: 1, Yaw: 0, Timestamp: now.Add(PollInterval)})

	assert.True(t, tracker.CheckChallenge(ChallengeTurnLeft), "turn stays satisfied after returning to center")
	assert.False(t, tracker.CheckChallenge(ChallengeTurnRight))
	assert.False(t, tracker.CheckChallenge(ChallengeSmile))

	tracker.Observe(FaceState{LeftEyeOpenness: 1, RightEyeOpenness: 1, SmileAmount: 0.5, Timestamp: now.Add(2 * PollInterval)})
	assert.True(t, tracker.CheckChallenge(ChallengeSmile))

	tracker.Observe(FaceState{LeftEyeOpenness: 1, RightEyeOpenness: 1, Yaw: -0.25, Timestamp: now.Add(3 * PollInterval)})
	assert.True(t, tracker.CheckChallenge(ChallengeTurnRight))

	previous := tracker.SessionID()
	tracker.Reset()
	assert.NotEqual(t, previous, tracker.SessionID())
	assert.Equal(t, Progress{}, tracker.Progress())
	assert.Empty(t, tracker.History())
	assert.False(t, tracker.CheckChallenge("unknown"))
}

func TestTracker_ProcessFrame(t *testing.T) {
	landmarks := &scriptedLandmarks{faces: map[string]provider.FaceDetection{
		"face": detection(0.9, 0.9, 0.05, 0, 0),
	}}

	var observed []Progress
	tracker := NewTracker(landmarks, testLogger(), WithFrameObserver(func(_ FaceState, p Progress) {
		observed = append(observed, p)
	}))

	state, err := tracker.ProcessFrame(context.Background(), []byte("face"))
	require.NoError(t, err)
	assert.Equal(t, 0.05, state.Yaw)
	assert.Len(t, observed, 1)

	_, err = tracker.ProcessFrame(context.Background(), []byte("empty"))
	assert.ErrorIs(t, err, domain.ErrNoFaceDetected)
	assert.Len(t, tracker.History(), 1)

	landmarks.err = errors.New("provider down")
	_, err = tracker.ProcessFrame(context.Background(), []byte("face"))
	assert.Error(t, err)
}

func TestTracker_Run(t *testing.T) {
	landmarks := &scriptedLandmarks{faces: map[string]provider.FaceDetection{
		"open":   detection(0.9, 0.9, 0, 0, 0),
		"closed": detection(0.05, 0.05, 0, 0, 0),
		"left":   detection(0.9, 0.9, 0.4, 0, 0),
	}}

	t.Run("passes once the blink is seen", func(t *testing.T) {
		tracker := NewTracker(landmarks, testLogger())
		source := &sliceSource{frames: [][]byte{[]byte("open"), []byte("nobody"), []byte("closed"), []byte("open")}}

		res := tracker.Run(context.Background(), ChallengeBlink, source, 2*time.Second)

		assert.Equal(t, StatusPassed, res.Status)
		assert.True(t, res.Passed)
		assert.NoError(t, res.Err())
		assert.Equal(t, 1, res.Progress.BlinkCount)
		assert.Equal(t, 2, res.Progress.Frames, "no-face frame is skipped")
	})

	t.Run("times out naming the challenge", func(t *testing.T) {
		tracker := NewTracker(landmarks, testLogger())
		source := &sliceSource{frames: [][]byte{[]byte("open"), []byte("left")}}

		start := time.Now()
		res := tracker.Run(context.Background(), ChallengeSmile, source, 250*time.Millisecond)

		assert.Equal(t, StatusTimedOut, res.Status)
		assert.False(t, res.Passed)
		assert.Contains(t, res.Reason, ChallengeSmile.Instruction())
		assert.ErrorIs(t, res.Err(), domain.ErrProcessingTimeout)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("source failure ends the attempt", func(t *testing.T) {
		tracker := NewTracker(landmarks, testLogger())
		source := &sliceSource{err: io.EOF}

		res := tracker.Run(context.Background(), ChallengeTurnLeft, source, time.Second)

		assert.Equal(t, StatusFailed, res.Status)
		assert.ErrorIs(t, res.Err(), domain.ErrLivenessFailed)
	})

	t.Run("provider failure ends the attempt with its cause", func(t *testing.T) {
		outage := errors.New("rekognition: service unavailable")
		tracker := NewTracker(&scriptedLandmarks{err: outage}, testLogger())
		source := &sliceSource{frames: [][]byte{[]byte("open"), []byte("closed")}}

		start := time.Now()
		res := tracker.Run(context.Background(), ChallengeBlink, source, 2*time.Second)

		assert.Equal(t, StatusFailed, res.Status)
		assert.False(t, res.Passed)
		assert.Less(t, time.Since(start), time.Second)

		err := res.Err()
		assert.ErrorIs(t, err, outage)
		assert.ErrorIs(t, err, domain.ErrInternal)
		assert.NotErrorIs(t, err, domain.ErrProcessingTimeout)
	})

	t.Run("provider app error is kept", func(t *testing.T) {
		tracker := NewTracker(&scriptedLandmarks{err: domain.ErrInvalidImage}, testLogger())
		source := &sliceSource{frames: [][]byte{[]byte("garbage")}}

		res := tracker.Run(context.Background(), ChallengeBlink, source, time.Second)

		assert.Equal(t, StatusFailed, res.Status)
		assert.ErrorIs(t, res.Err(), domain.ErrInvalidImage)
	})

	t.Run("unknown challenge fails immediately", func(t *testing.T) {
		tracker := NewTracker(landmarks, testLogger())

		res := tracker.Run(context.Background(), ChallengeType("nod"), &sliceSource{}, time.Second)

		assert.Equal(t, StatusFailed, res.Status)
	})
}

func TestTracker_QuickCheck(t *testing.T) {
	landmarks := &scriptedLandmarks{faces: map[string]provider.FaceDetection{
		"still":  detection(0.9, 0.9, 0.01, 0.02, 0),
		"move-1": detection(0.9, 0.9, -0.05, 0.00, 0),
		"move-2": detection(0.6, 0.7, 0.04, 0.03, 0),
		"move-3": detection(0.95, 0.9, 0.00, -0.04, 0),
		"move-4": detection(0.8, 0.8, 0.06, 0.02, 0),
		"move-5": detection(0.9, 0.85, -0.02, 0.05, 0),
	}}
	frames := func(names ...string) [][]byte {
		out := make([][]byte, len(names))
		for i, n := range names {
			out[i] = []byte(n)
		}
		return out
	}

	tests := []struct {
		name       string
		frames     [][]byte
		wantPassed bool
		wantReason string
		wantValid  int
	}{
		{
			name:       "too few frames",
			frames:     frames("still", "still", "still", "still"),
			wantReason: "al menos 5",
		},
		{
			name:       "too few faces",
			frames:     frames("still", "nobody", "nobody", "still", "nobody"),
			wantReason: "Rostro detectado en 2",
			wantValid:  2,
		},
		{
			name:       "static replay",
			frames:     frames("still", "still", "still", "still", "still"),
			wantReason: "suplantación",
			wantValid:  5,
		},
		{
			name:       "natural movement",
			frames:     frames("move-1", "move-2", "nobody", "move-3", "move-4", "move-5"),
			wantPassed: true,
			wantValid:  5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker(landmarks, testLogger())

			res, err := tracker.QuickCheck(context.Background(), tt.frames)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPassed, res.Passed)
			assert.Equal(t, tt.wantValid, res.ValidFrames)
			if tt.wantReason != "" {
				assert.Contains(t, res.Reason, tt.wantReason)
			}
			if tt.wantPassed {
				assert.Greater(t, res.Variance, MicroMovementThreshold)
			}
		})
	}

	t.Run("provider failure is returned", func(t *testing.T) {
		outage := errors.New("rekognition: service unavailable")
		tracker := NewTracker(&scriptedLandmarks{err: outage}, testLogger())

		res, err := tracker.QuickCheck(context.Background(), frames("move-1", "move-2", "move-3", "move-4", "move-5"))

		require.Error(t, err)
		assert.ErrorIs(t, err, outage)
		assert.False(t, res.Passed)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewTracker(landmarks, testLogger()).QuickCheck(ctx, frames("still", "still", "still", "still", "still"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestVariance(t *testing.T) {
	assert.Zero(t, variance(nil))
	assert.Zero(t, variance([]float64{0.3, 0.3, 0.3}))
	assert.InDelta(t, 1.25, variance([]float64{1, 2, 3, 4}), 1e-12)
}

func TestChallenges(t *testing.T) {
	for _, c := range challenges {
		assert.NotEmpty(t, c.Instruction())
		parsed, err := ParseChallenge(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	_, err := ParseChallenge("nod")
	assert.Error(t, err)

	for i := 0; i < 50; i++ {
		assert.True(t, RandomChallenge().Valid())
	}
}
