//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"campus-relay/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself; the supervisor recovers its panics.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// used for logging and supervision without manual naming in the interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one delivery endpoint for envelopes: a live connection's
// buffered channel, or a permanent sink such as history or the timeline.
type EventSink interface {
	Consume(ctx context.Context, e domain.Envelope) error
}

// IRegistry is the single source of truth for live connections. All
// mutations are serialized; fan-out queries observe a consistent snapshot.
type IRegistry interface {
	Register(identity domain.Identity, sink EventSink) domain.SessionID
	JoinRoom(sessionID domain.SessionID, roomID domain.RoomID)
	LeaveAll(sessionID domain.SessionID) []domain.RoomID
	SessionsIn(roomID domain.RoomID) []domain.SessionID
	SessionsOf(accountID string) []domain.SessionID
	Rooms(sessionID domain.SessionID) []domain.RoomID
	Sink(sessionID domain.SessionID) (EventSink, bool)
	Identity(sessionID domain.SessionID) (domain.Identity, bool)
	SetStatus(sessionID domain.SessionID, status domain.Status) error
	Len() int
}

// AccountDirectory resolves an authenticated account id into the identity
// a session is bound to. Implementations must honor the context deadline;
// the authenticator fails closed on timeout.
type AccountDirectory interface {
	Resolve(ctx context.Context, accountID string) (domain.Identity, error)
}
