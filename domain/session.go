package domain

import (
	"fmt"

	"campus-relay/errors"

	"github.com/google/uuid"
)

// SessionID identifies one authenticated live connection. One account may
// own several concurrent sessions (multi-device).
type SessionID string

func NewSessionID() SessionID { return SessionID(uuid.NewString()) }

// Status is the presence state announced to group rooms.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOnline, StatusOffline:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownStatus, s)
	}
}
