package domain

import "strings"

// RoomID is a pure routing key denoting an audience. Rooms are never
// materialized as stored entities; membership lives only as edges in the
// session registry.
type RoomID string

const (
	selfPrefix  = "self:"
	rolePrefix  = "role:"
	groupPrefix = "group:"
)

// SelfRoom addresses every live session of one account.
func SelfRoom(accountID string) RoomID { return RoomID(selfPrefix + accountID) }

// RoleRoom addresses every live session holding the given role.
func RoleRoom(role Role) RoomID { return RoomID(rolePrefix + string(role)) }

// GroupRoom addresses every live session affiliated with the given course.
func GroupRoom(course CourseID) RoomID { return RoomID(groupPrefix + string(course)) }

// Course returns the course id when r is a group room. Presence broadcasts
// are scoped to group rooms only, never role or self rooms.
func (r RoomID) Course() (CourseID, bool) {
	raw, ok := strings.CutPrefix(string(r), groupPrefix)
	if !ok || raw == "" {
		return "", false
	}
	return CourseID(raw), true
}
