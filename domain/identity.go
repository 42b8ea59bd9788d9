// Package domain contains core concepts of the messaging relay.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"fmt"

	"campus-relay/errors"
)

// Role is the enumerated account role. Unknown tags are rejected at parse
// time instead of falling through string comparisons.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownRole, s)
	}
}

// CourseID is an affiliation unit scoping a group room.
type CourseID string

// Identity is the resolved account bound to a session. It is resolved once
// at connect time from the account directory and never mutated afterwards;
// affiliation changes become visible on reconnect only.
type Identity struct {
	AccountID    string
	Name         string
	Role         Role
	Affiliations []CourseID
}

// Snapshot returns the immutable sender view carried inside envelopes.
func (i Identity) Snapshot() Sender {
	return Sender{AccountID: i.AccountID, Name: i.Name, Role: i.Role}
}
