package runtime

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"campus-relay/contract"
	"campus-relay/domain"
	"campus-relay/errors"
)

type Set map[domain.SessionID]struct{}

// session is owned exclusively by the registry; callers only ever see
// copies of its fields.
type session struct {
	identity    domain.Identity
	sink        contract.EventSink
	rooms       map[domain.RoomID]struct{}
	connectedAt time.Time
	status      domain.Status
}

// Registry is the single source of truth for live connections. It maps
// sessions to delivery sinks, rooms to member sessions, and accounts to
// their concurrent sessions. Every mutation happens under one lock so a
// fan-out query observes either the full post-join membership or none of
// it, never a partial view.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[domain.SessionID]*session
	roomMembers map[domain.RoomID]Set
	byAccount   map[string]Set
	log         *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		sessions:    make(map[domain.SessionID]*session),
		roomMembers: make(map[domain.RoomID]Set),
		byAccount:   make(map[string]Set),
		log:         log,
	}
}

// Register creates a new session with an empty room set. It never fails
// for a well-formed identity; room membership is added afterwards by the
// router.
func (r *Registry) Register(identity domain.Identity, sink contract.EventSink) domain.SessionID {
	id := domain.NewSessionID()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[id] = &session{
		identity:    identity,
		sink:        sink,
		rooms:       make(map[domain.RoomID]struct{}),
		connectedAt: time.Now().UTC(),
		status:      domain.StatusOnline,
	}
	if _, ok := r.byAccount[identity.AccountID]; !ok {
		r.byAccount[identity.AccountID] = make(Set)
	}
	r.byAccount[identity.AccountID][id] = struct{}{}

	return id
}

// JoinRoom adds the session to a room. Joining a room the session already
// belongs to is a no-op, as is joining from an already-removed session (a
// race during teardown, logged for diagnostics only).
func (r *Registry) JoinRoom(sessionID domain.SessionID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		r.log.Debug(fmt.Sprintf("join on removed session: %v", errors.ErrSessionNotFound),
			"session_id", string(sessionID), "room_id", string(roomID))
		return
	}
	if _, ok := s.rooms[roomID]; ok {
		return
	}

	s.rooms[roomID] = struct{}{}
	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set)
	}
	r.roomMembers[roomID][sessionID] = struct{}{}
}

// LeaveAll returns the room set just before removal, then deletes the
// session entirely. The presence tracker broadcasts "offline" to the
// returned set, so the audience is computed against pre-removal
// membership. Empty room and account sets are pruned to prevent leaks.
func (r *Registry) LeaveAll(sessionID domain.SessionID) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		r.log.Debug(fmt.Sprintf("teardown on removed session: %v", errors.ErrSessionNotFound),
			"session_id", string(sessionID))
		return nil
	}

	rooms := make([]domain.RoomID, 0, len(s.rooms))
	for roomID := range s.rooms {
		rooms = append(rooms, roomID)
		if members, ok := r.roomMembers[roomID]; ok {
			delete(members, sessionID)
			if len(members) == 0 {
				delete(r.roomMembers, roomID)
			}
		}
	}

	delete(r.sessions, sessionID)
	if owned, ok := r.byAccount[s.identity.AccountID]; ok {
		delete(owned, sessionID)
		if len(owned) == 0 {
			delete(r.byAccount, s.identity.AccountID)
		}
	}

	return rooms
}

// SessionsIn is the read-only fan-out query for room targets.
func (r *Registry) SessionsIn(roomID domain.RoomID) []domain.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	out := make([]domain.SessionID, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// SessionsOf returns every live session of one account, used for
// explicit-recipient delivery.
func (r *Registry) SessionsOf(accountID string) []domain.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owned, ok := r.byAccount[accountID]
	if !ok {
		return nil
	}
	out := make([]domain.SessionID, 0, len(owned))
	for id := range owned {
		out = append(out, id)
	}
	return out
}

// Rooms returns a copy of the session's current room set.
func (r *Registry) Rooms(sessionID domain.SessionID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]domain.RoomID, 0, len(s.rooms))
	for roomID := range s.rooms {
		out = append(out, roomID)
	}
	return out
}

func (r *Registry) Sink(sessionID domain.SessionID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return s.sink, true
}

func (r *Registry) Identity(sessionID domain.SessionID) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return domain.Identity{}, false
	}
	return s.identity, true
}

func (r *Registry) SetStatus(sessionID domain.SessionID, status domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return errors.ErrSessionNotFound
	}
	s.status = status
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
