package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/saturnino-fabrica-de-software/verifica/internal/audit"
	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
	"github.com/saturnino-fabrica-de-software/verifica/internal/liveness"
	"github.com/saturnino-fabrica-de-software/verifica/internal/provider"
)

// LivenessService runs passive and active liveness checks. Each call gets its
// own tracker, so the service is safe for concurrent use.
type LivenessService struct {
	landmarks provider.LandmarkProvider
	timeout   time.Duration
	audit     audit.Logger
	logger    *slog.Logger
}

func NewLivenessService(landmarks provider.LandmarkProvider, timeout time.Duration, auditLogger audit.Logger, logger *slog.Logger) *LivenessService {
	if timeout <= 0 {
		timeout = liveness.DefaultTimeout
	}
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}
	return &LivenessService{
		landmarks: landmarks,
		timeout:   timeout,
		audit:     auditLogger,
		logger:    logger,
	}
}

// Timeout is the budget of one active challenge
func (s *LivenessService) Timeout() time.Duration {
	return s.timeout
}

// PassiveCheck evaluates a burst of frames for natural micro-movement
func (s *LivenessService) PassiveCheck(ctx context.Context, frames [][]byte) (liveness.PassiveResult, error) {
	tracker := liveness.NewTracker(s.landmarks, s.logger)

	res, err := tracker.QuickCheck(ctx, frames)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, domain.ErrProcessingTimeout.WithError(ctxErr)
		}
		s.record(ctx, tracker.SessionID().String(), false, err.Error(), map[string]string{"mode": "passive"})

		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			return res, err
		}
		return res, domain.ErrInternal.WithError(err)
	}

	s.record(ctx, tracker.SessionID().String(), res.Passed, res.Reason, map[string]string{
		"mode":         "passive",
		"frames":       strconv.Itoa(res.Frames),
		"valid_frames": strconv.Itoa(res.ValidFrames),
		"variance":     strconv.FormatFloat(res.Variance, 'g', 6, 64),
	})

	return res, nil
}

// RunChallenge drives an active challenge over source. observer, when not
// nil, is called after every processed frame.
func (s *LivenessService) RunChallenge(
	ctx context.Context,
	challenge liveness.ChallengeType,
	source liveness.FrameSource,
	observer func(liveness.FaceState, liveness.Progress),
) liveness.Result {
	var opts []liveness.TrackerOption
	if observer != nil {
		opts = append(opts, liveness.WithFrameObserver(observer))
	}
	tracker := liveness.NewTracker(s.landmarks, s.logger, opts...)

	res := tracker.Run(ctx, challenge, source, s.timeout)

	s.record(ctx, res.SessionID.String(), res.Passed, res.Reason, map[string]string{
		"mode":      "active",
		"challenge": string(res.Challenge),
		"status":    string(res.Status),
		"frames":    strconv.Itoa(res.Progress.Frames),
	})

	return res
}

func (s *LivenessService) record(ctx context.Context, sessionID string, passed bool, reason string, metadata map[string]string) {
	err := s.audit.Log(ctx, audit.Event{
		AttemptID: sessionID,
		EventType: audit.EventLivenessEvaluated,
		Success:   passed,
		Error:     reason,
		Metadata:  metadata,
	})
	if err != nil {
		s.logger.Warn("audit log failed", slog.Any("error", err))
	}
}
