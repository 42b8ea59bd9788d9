package runtime

import (
	"context"
	"log/slog"
	"testing"

	"campus-relay/domain"
	"campus-relay/errors"

	"github.com/stretchr/testify/require"
)

type nopSink struct{}

func (s nopSink) Consume(_ context.Context, _ domain.Envelope) error {
	return nil
}

func studentIdentity(accountID string, courses ...domain.CourseID) domain.Identity {
	return domain.Identity{
		AccountID:    accountID,
		Name:         "Student " + accountID,
		Role:         domain.RoleStudent,
		Affiliations: courses,
	}
}

func TestRegistry_Register_One_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())

	// Given no session is connected
	req.Zero(registry.Len())

	// When an identity registers
	sessionID := registry.Register(studentIdentity("u1", "courseA"), nopSink{})

	// Then the session exists with no room membership yet
	req.NotEmpty(sessionID)
	req.Equal(1, registry.Len())
	req.Empty(registry.Rooms(sessionID))

	identity, ok := registry.Identity(sessionID)
	req.True(ok)
	req.Equal("u1", identity.AccountID)

	_, ok = registry.Sink(sessionID)
	req.True(ok)
}

func TestRegistry_Register_Multiple_Sessions_Same_Account(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())

	// When the same account connects twice
	session1 := registry.Register(studentIdentity("u1"), nopSink{})
	session2 := registry.Register(studentIdentity("u1"), nopSink{})

	// Then each connection is a distinct session
	req.NotEqual(session1, session2)
	req.Equal(2, registry.Len())
	req.ElementsMatch(
		[]domain.SessionID{session1, session2},
		registry.SessionsOf("u1"))
}

func TestRegistry_JoinRoom_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	roomID := domain.GroupRoom("courseA")

	sessionID := registry.Register(studentIdentity("u1", "courseA"), nopSink{})

	// When joining the same room twice
	registry.JoinRoom(sessionID, roomID)
	registry.JoinRoom(sessionID, roomID)

	// Then membership is recorded once
	req.Len(registry.Rooms(sessionID), 1)
	req.Equal([]domain.SessionID{sessionID}, registry.SessionsIn(roomID))
}

func TestRegistry_JoinRoom_Removed_Session_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	roomID := domain.GroupRoom("courseA")

	// When joining from a session that never existed
	registry.JoinRoom(domain.NewSessionID(), roomID)

	// Then nothing is recorded
	req.Empty(registry.SessionsIn(roomID))
	req.Zero(registry.Len())
}

func TestRegistry_LeaveAll_Returns_Pre_Removal_Rooms(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())

	sessionID := registry.Register(studentIdentity("u1", "courseA"), nopSink{})
	registry.JoinRoom(sessionID, domain.SelfRoom("u1"))
	registry.JoinRoom(sessionID, domain.RoleRoom(domain.RoleStudent))
	registry.JoinRoom(sessionID, domain.GroupRoom("courseA"))

	// When the session leaves
	rooms := registry.LeaveAll(sessionID)

	// Then the full pre-removal room set is returned
	req.ElementsMatch([]domain.RoomID{
		domain.SelfRoom("u1"),
		domain.RoleRoom(domain.RoleStudent),
		domain.GroupRoom("courseA"),
	}, rooms)

	// And the session is entirely gone
	req.Zero(registry.Len())
	req.Empty(registry.SessionsIn(domain.GroupRoom("courseA")))
	req.Empty(registry.SessionsOf("u1"))
	_, ok := registry.Sink(sessionID)
	req.False(ok)
}

func TestRegistry_LeaveAll_Keeps_Other_Members(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	roomID := domain.GroupRoom("courseA")

	session1 := registry.Register(studentIdentity("u1", "courseA"), nopSink{})
	session2 := registry.Register(studentIdentity("u2", "courseA"), nopSink{})
	registry.JoinRoom(session1, roomID)
	registry.JoinRoom(session2, roomID)

	// When one member leaves
	registry.LeaveAll(session1)

	// Then the room still serves the other member
	req.Equal([]domain.SessionID{session2}, registry.SessionsIn(roomID))
	req.Equal(1, registry.Len())
}

func TestRegistry_LeaveAll_Removed_Session_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())

	// When tearing down a session that never existed
	rooms := registry.LeaveAll(domain.NewSessionID())

	// Then nothing happened
	req.Nil(rooms)
}

func TestRegistry_SetStatus(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())

	sessionID := registry.Register(studentIdentity("u1"), nopSink{})

	req.NoError(registry.SetStatus(sessionID, domain.StatusOffline))
	req.ErrorIs(registry.SetStatus(domain.NewSessionID(), domain.StatusOnline),
		errors.ErrSessionNotFound)
}
