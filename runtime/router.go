package runtime

import (
	"campus-relay/contract"
	"campus-relay/domain"
)

// ComputeRooms derives the deterministic room set for an identity:
// its self room, its role room, and one group room per affiliated course.
// Pure function; the result depends on nothing but the identity.
func ComputeRooms(identity domain.Identity) []domain.RoomID {
	rooms := make([]domain.RoomID, 0, len(identity.Affiliations)+2)
	rooms = append(rooms,
		domain.SelfRoom(identity.AccountID),
		domain.RoleRoom(identity.Role),
	)
	for _, course := range identity.Affiliations {
		rooms = append(rooms, domain.GroupRoom(course))
	}
	return rooms
}

// Router joins a freshly registered session into its computed rooms.
// Joins are idempotent and commutative, so order is irrelevant. There is
// no partial re-scoping mid-session: affiliation changes only take effect
// on reconnect.
type Router struct {
	registry contract.IRegistry
}

func NewRouter(registry contract.IRegistry) *Router {
	return &Router{registry: registry}
}

func (r *Router) JoinAll(sessionID domain.SessionID, identity domain.Identity) []domain.RoomID {
	rooms := ComputeRooms(identity)
	for _, roomID := range rooms {
		r.registry.JoinRoom(sessionID, roomID)
	}
	return rooms
}
