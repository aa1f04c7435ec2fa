package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ErrConnectionClosed is returned by NextFrame once the client went away
var ErrConnectionClosed = errors.New("websocket connection closed")

// Conn is the part of *websocket.Conn a Session needs
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Session is one active liveness attempt over a websocket. Binary messages
// are camera frames; only the newest unread frame is kept.
type Session struct {
	id     uuid.UUID
	hub    *Hub
	conn   Conn
	frames chan []byte
	send   chan []byte

	done      chan struct{}
	closeOnce sync.Once

	mu         sync.Mutex
	sendClosed bool
}

func NewSession(hub *Hub, conn Conn) *Session {
	return &Session{
		id:     uuid.New(),
		hub:    hub,
		conn:   conn,
		frames: make(chan []byte, 1),
		send:   make(chan []byte, 64),
		done:   make(chan struct{}),
	}
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

// Done is closed when the client connection is gone
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// NextFrame implements liveness.FrameSource. It never blocks: a nil frame
// means nothing new arrived since the last call.
func (s *Session) NextFrame(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case frame := <-s.frames:
		return frame, nil
	case <-s.done:
		return nil, ErrConnectionClosed
	default:
		return nil, nil
	}
}

// ReadPump consumes client messages until the connection fails
func (s *Session) ReadPump() {
	defer func() {
		if s.hub != nil {
			s.hub.Unregister(s)
		}
		s.markDone()
	}()

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}
		s.pushFrame(data)
	}
}

func (s *Session) pushFrame(frame []byte) {
	for {
		select {
		case s.frames <- frame:
			return
		default:
		}
		select {
		case <-s.frames:
		default:
		}
	}
}

// WritePump sends queued events until Close is called
func (s *Session) WritePump() {
	defer func() {
		_ = s.conn.Close()
	}()

	for message := range s.send {
		if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// Emit queues an event; it is dropped when the client is not keeping up
func (s *Session) Emit(eventType EventType, data interface{}) {
	message, err := json.Marshal(Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	})
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendClosed {
		return
	}

	select {
	case s.send <- message:
	default:
	}
}

// Close stops the writer after the queued events are flushed
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sendClosed {
		s.sendClosed = true
		close(s.send)
	}
}

func (s *Session) markDone() {
	s.closeOnce.Do(func() { close(s.done) })
}
