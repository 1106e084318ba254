package ws

import (
	"sync"

	"github.com/rs/zerolog"

	"parley/internal/metrics"
)

// session is one live bidirectional connection. Its owner is set at
// registration and never reassigned; rooms is guarded by the hub mutex.
type session struct {
	handle string
	userID int
	send   chan []byte
	rooms  map[Room]struct{}
}

// Hub is the session registry and the single fanout authority. It owns all
// live session and room membership state; durable membership truth stays in
// the store and is never cached here.
//
// Three maps, one lock: handle lookup, per-user session index, and per-room
// member sets. Every mutation updates all relevant maps under the same lock,
// so readers observe either the pre- or post-mutation state, never a torn one.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session
	byUser   map[int]map[string]*session
	rooms    map[Room]map[string]*session

	log zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]*session),
		byUser:   make(map[int]map[string]*session),
		rooms:    make(map[Room]map[string]*session),
		log:      log,
	}
}

// Register creates a live session owned by userID and implicitly places it in
// the owner's personal room. Pushes are delivered on send until Unregister
// closes it.
func (h *Hub) Register(handle string, userID int, send chan []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[handle]; ok {
		return ErrDuplicateSession
	}

	s := &session{
		handle: handle,
		userID: userID,
		send:   send,
		rooms:  make(map[Room]struct{}),
	}
	h.sessions[handle] = s

	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[string]*session)
	}
	h.byUser[userID][handle] = s

	h.joinLocked(s, PersonalRoom(userID))

	metrics.ActiveSessions.Inc()
	h.log.Debug().Str("session", handle).Int("user", userID).Msg("session registered")
	return nil
}

// Unregister removes the session from every room it was in, including its
// personal room, and closes its send channel. Calling it again for the same
// handle is a no-op, which absorbs duplicate disconnect signals.
func (h *Hub) Unregister(handle string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[handle]
	if !ok {
		return
	}

	for room := range s.rooms {
		h.leaveLocked(s, room)
	}

	delete(h.byUser[s.userID], handle)
	if len(h.byUser[s.userID]) == 0 {
		delete(h.byUser, s.userID)
	}
	delete(h.sessions, handle)
	close(s.send)

	metrics.ActiveSessions.Dec()
	h.log.Debug().Str("session", handle).Int("user", s.userID).Msg("session unregistered")
}

// SessionsFor returns the handles of the user's current live sessions.
func (h *Hub) SessionsFor(userID int) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	handles := make([]string, 0, len(h.byUser[userID]))
	for handle := range h.byUser[userID] {
		handles = append(handles, handle)
	}
	return handles
}

// RoomMembers returns the handles of sessions currently subscribed to room.
func (h *Hub) RoomMembers(room Room) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	handles := make([]string, 0, len(h.rooms[room]))
	for handle := range h.rooms[room] {
		handles = append(handles, handle)
	}
	return handles
}

// join subscribes the session to room. Joining a room the session is already
// in is a no-op. Authorization happens in Subscriptions, not here.
func (h *Hub) join(handle string, room Room) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[handle]
	if !ok {
		return ErrUnknownSession
	}
	h.joinLocked(s, room)
	return nil
}

// leave unsubscribes the session from room. Leaving a room the session is
// not in is a no-op.
func (h *Hub) leave(handle string, room Room) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[handle]
	if !ok {
		return ErrUnknownSession
	}
	h.leaveLocked(s, room)
	return nil
}

func (h *Hub) joinLocked(s *session, room Room) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*session)
	}
	h.rooms[room][s.handle] = s
	s.rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(s *session, room Room) {
	delete(h.rooms[room], s.handle)
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
	delete(s.rooms, room)
}

// broadcast pushes payload to every session in room, at most once each. A
// session whose buffer is full is skipped and logged; it never blocks or
// fails delivery to the others.
func (h *Hub) broadcast(room Room, payload []byte) {
	// Pushes stay under the read lock: Unregister closes send channels under
	// the write lock, so a send here can never hit a closed channel.
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.rooms[room] {
		select {
		case s.send <- payload:
			metrics.Deliveries.Inc()
		default:
			metrics.DeliveryDrops.Inc()
			h.log.Warn().Str("session", s.handle).Stringer("room", room).
				Msg("send buffer full, dropping delivery")
		}
	}
}
