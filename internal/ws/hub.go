package ws

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Hub tracks the live liveness sessions so they can be counted and closed on shutdown
type Hub struct {
	sessions   map[uuid.UUID]*Session
	register   chan *Session
	unregister chan *Session
	stopped    chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[uuid.UUID]*Session),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		stopped:    make(chan struct{}),
	}
}

// Run serves registrations until ctx is cancelled, then closes every session
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.stopped)
			h.closeAll()
			return
		case s := <-h.register:
			h.addSession(s)
		case s := <-h.unregister:
			h.removeSession(s)
		}
	}
}

// Register adds s; it returns false when the hub has stopped
func (h *Hub) Register(ctx context.Context, s *Session) bool {
	select {
	case h.register <- s:
		return true
	case <-ctx.Done():
		return false
	case <-h.stopped:
		return false
	}
}

// Unregister removes s; it never blocks once the hub has stopped
func (h *Hub) Unregister(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.stopped:
	}
}

func (h *Hub) addSession(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[s.id] = s
}

func (h *Hub) removeSession(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sessions, s.id)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, s := range h.sessions {
		s.Emit(EventError, ErrorData{Code: "SHUTTING_DOWN", Message: "El servidor se está reiniciando"})
		s.Close()
		delete(h.sessions, id)
	}
}

// ActiveSessions returns how many liveness sessions are connected
func (h *Hub) ActiveSessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions)
}
