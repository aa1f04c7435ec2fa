package ws

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/saturnino-fabrica-de-software/verifica/internal/liveness"
)

// ChallengeRunner runs one active liveness challenge over a frame source
type ChallengeRunner interface {
	RunChallenge(ctx context.Context, challenge liveness.ChallengeType, source liveness.FrameSource, observer func(liveness.FaceState, liveness.Progress)) liveness.Result
	Timeout() time.Duration
}

// Handler upgrades to a websocket and runs the challenge named by the
// "challenge" query parameter, or a random one when it is absent.
func Handler(hub *Hub, runner ChallengeRunner, logger *slog.Logger) fiber.Handler {
	logger = logger.With("component", "liveness_ws")
	return websocket.New(func(c *websocket.Conn) {
		Serve(hub, runner, c, c.Query("challenge"), logger)
	})
}

// Serve drives one session to completion over conn
func Serve(hub *Hub, runner ChallengeRunner, conn Conn, challengeParam string, logger *slog.Logger) {
	session := NewSession(hub, conn)

	writerDone := make(chan struct{})
	go func() {
		session.WritePump()
		close(writerDone)
	}()
	finish := func() {
		session.Close()
		<-writerDone
	}

	challenge := liveness.RandomChallenge()
	if challengeParam != "" {
		parsed, err := liveness.ParseChallenge(challengeParam)
		if err != nil {
			session.Emit(EventError, ErrorData{Code: "INVALID_CHALLENGE", Message: err.Error()})
			finish()
			return
		}
		challenge = parsed
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if hub != nil && !hub.Register(ctx, session) {
		session.Emit(EventError, ErrorData{Code: "SHUTTING_DOWN", Message: "El servidor se está reiniciando"})
		finish()
		return
	}

	go session.ReadPump()
	go func() {
		select {
		case <-session.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	session.Emit(EventChallenge, ChallengeData{
		SessionID:   session.ID().String(),
		Challenge:   string(challenge),
		Instruction: challenge.Instruction(),
		TimeoutMs:   runner.Timeout().Milliseconds(),
	})

	res := runner.RunChallenge(ctx, challenge, session, func(state liveness.FaceState, p liveness.Progress) {
		session.Emit(EventProgress, ProgressData{
			Frames:      p.Frames,
			BlinkCount:  p.BlinkCount,
			TurnedLeft:  p.TurnedLeft,
			TurnedRight: p.TurnedRight,
			Smiled:      p.Smiled,
			Yaw:         state.Yaw,
			Facing:      state.IsFacingCamera(),
		})
	})

	logger.Debug("liveness session finished",
		slog.String("ws_session", session.ID().String()),
		slog.String("status", string(res.Status)),
		slog.Any("error", res.Err()),
	)

	session.Emit(EventResult, res)
	finish()
}

func UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}
