package ws

import (
	"time"
)

type EventType string

const (
	EventChallenge EventType = "challenge"
	EventProgress  EventType = "progress"
	EventResult    EventType = "result"
	EventError     EventType = "error"
)

type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// ChallengeData announces the challenge the subject must perform
type ChallengeData struct {
	SessionID   string `json:"session_id"`
	Challenge   string `json:"challenge"`
	Instruction string `json:"instruction"`
	TimeoutMs   int64  `json:"timeout_ms"`
}

// ProgressData is sent after every processed frame
type ProgressData struct {
	Frames      int     `json:"frames"`
	BlinkCount  int     `json:"blink_count"`
	TurnedLeft  bool    `json:"turned_left"`
	TurnedRight bool    `json:"turned_right"`
	Smiled      bool    `json:"smiled"`
	Yaw         float64 `json:"yaw"`
	Facing      bool    `json:"facing_camera"`
}

// ErrorData reports a problem that ends the session
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
