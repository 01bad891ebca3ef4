package realtime

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/consult-service/internal/domain"
)

// Session is one live connection. A session joins rooms to receive
// publishes; its Outbound channel is drained by the transport's writer.
type Session struct {
	ID       uuid.UUID
	UserID   string
	Role     domain.ActorRole
	Outbound chan Envelope

	// mu orders direct sends against close: Outbound is only closed with
	// the write lock held, and senders check closed under the read lock.
	mu     sync.RWMutex
	closed bool
	rooms  map[string]bool
	done   chan struct{}
	once   sync.Once
}

// Done is closed when the session has been removed from the hub.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.done)
		close(s.Outbound)
		s.mu.Unlock()
	})
}

// Hub maintains room membership and fans published events out to member
// sessions. It holds no durable state: a process restart loses all
// memberships, and clients re-join on reconnect.
type Hub struct {
	mu     sync.RWMutex
	logger *zap.Logger
	rooms  map[string]map[*Session]bool
	buffer int
	closed bool
}

// NewHub creates a hub. buffer sizes each session's outbound channel.
func NewHub(logger *zap.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		logger: logger.With(zap.String("component", "realtime_hub")),
		rooms:  make(map[string]map[*Session]bool),
		buffer: buffer,
	}
}

// NewSession registers a connection identity with the hub. The user id comes
// from the verified principal resolved at upgrade, never from the client.
func (h *Hub) NewSession(userID string, role domain.ActorRole) *Session {
	return &Session{
		ID:       uuid.New(),
		UserID:   userID,
		Role:     role,
		Outbound: make(chan Envelope, h.buffer),
		rooms:    make(map[string]bool),
		done:     make(chan struct{}),
	}
}

// Join adds the session to a room. Takes effect for future publishes only;
// no replay of past events.
func (h *Hub) Join(session *Session, room string) {
	room = strings.TrimSpace(room)
	if room == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	session.rooms[room] = true
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Session]bool)
		h.rooms[room] = members
	}
	members[session] = true

	h.logger.Debug("session joined room",
		zap.String("session_id", session.ID.String()),
		zap.String("room", room))
}

// Leave removes the session from a room.
func (h *Hub) Leave(session *Session, room string) {
	room = strings.TrimSpace(room)
	if room == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	delete(session.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, session)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Publish delivers the envelope to every current member of its room and
// returns the number of sessions reached. Delivery is best-effort: a session
// whose outbound buffer is full is skipped, and an empty room drops the
// event silently.
func (h *Hub) Publish(env Envelope) int {
	if env.Room == "" {
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	members, ok := h.rooms[env.Room]
	if !ok {
		return 0
	}

	delivered := 0
	for session := range members {
		select {
		case session.Outbound <- env:
			delivered++
		default:
			h.logger.Warn("dropping event; session buffer full",
				zap.String("session_id", session.ID.String()),
				zap.String("event", env.Event))
		}
	}
	return delivered
}

// Send queues an envelope for a single session, bypassing rooms. Used for
// direct acks and error events. A send racing the session's close is dropped,
// so a read loop still handling a frame during shutdown cannot panic.
func (h *Hub) Send(session *Session, env Envelope) bool {
	session.mu.RLock()
	defer session.mu.RUnlock()
	if session.closed {
		return false
	}
	select {
	case session.Outbound <- env:
		return true
	default:
		h.logger.Warn("dropping direct event; session buffer full",
			zap.String("session_id", session.ID.String()),
			zap.String("event", env.Event))
		return false
	}
}

// CloseSession removes the session from all rooms and closes its channels.
func (h *Hub) CloseSession(session *Session) {
	h.mu.Lock()
	for room := range session.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, session)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	session.rooms = make(map[string]bool)
	h.mu.Unlock()

	session.close()
}

// Shutdown releases all room state and closes every session.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	sessions := make(map[*Session]bool)
	for _, members := range h.rooms {
		for session := range members {
			sessions[session] = true
		}
	}
	h.rooms = make(map[string]map[*Session]bool)
	h.closed = true
	h.mu.Unlock()

	for session := range sessions {
		session.close()
	}
}
