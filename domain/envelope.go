package domain

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindChat         Kind = "chat"
	KindNotification Kind = "notification"
	KindTyping       Kind = "typing"
	KindPresence     Kind = "presence"
	KindAck          Kind = "ack"
	KindError        Kind = "error"
)

// Sender is the immutable snapshot of the originating identity carried
// inside every envelope.
type Sender struct {
	AccountID string `json:"id"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
}

// Target designates an envelope audience; exactly one field is set.
// The fanout worker resolves them in order: direct session, explicit
// recipients, role room, group room.
type Target struct {
	Session    SessionID
	Recipients []string
	Role       Role
	Course     CourseID
}

// Envelope is the transient typed payload relayed between sessions. The
// relay never stores envelopes; the history sink persists chat and
// notification kinds through the history repository.
type Envelope interface {
	Kind() Kind
	Audience() Target
	// Origin is the session the envelope was submitted from. Room broadcasts
	// exclude it so a connection never receives its own submission back.
	Origin() SessionID
	SentAt() time.Time
}

type ChatEnvelope struct {
	ID      uuid.UUID
	Session SessionID
	Sender  Sender
	Target  Target
	Body    string
	MsgType string
	At      time.Time
}

func (e ChatEnvelope) Kind() Kind        { return KindChat }
func (e ChatEnvelope) Audience() Target  { return e.Target }
func (e ChatEnvelope) Origin() SessionID { return e.Session }
func (e ChatEnvelope) SentAt() time.Time { return e.At }

type NotificationEnvelope struct {
	ID      uuid.UUID
	Session SessionID
	Sender  Sender
	Target  Target
	Title   string
	Body    string
	MsgType string
	At      time.Time
}

func (e NotificationEnvelope) Kind() Kind        { return KindNotification }
func (e NotificationEnvelope) Audience() Target  { return e.Target }
func (e NotificationEnvelope) Origin() SessionID { return e.Session }
func (e NotificationEnvelope) SentAt() time.Time { return e.At }

// TypingEnvelope is relayed verbatim and never acknowledged.
type TypingEnvelope struct {
	Session  SessionID
	Sender   Sender
	Target   Target
	IsTyping bool
	At       time.Time
}

func (e TypingEnvelope) Kind() Kind        { return KindTyping }
func (e TypingEnvelope) Audience() Target  { return e.Target }
func (e TypingEnvelope) Origin() SessionID { return e.Session }
func (e TypingEnvelope) SentAt() time.Time { return e.At }

// PresenceEnvelope announces a status change to one group room. Connect and
// teardown emit one per group room the session belongs to.
type PresenceEnvelope struct {
	Session SessionID
	Sender  Sender
	Course  CourseID
	Status  Status
	At      time.Time
}

func (e PresenceEnvelope) Kind() Kind        { return KindPresence }
func (e PresenceEnvelope) Audience() Target  { return Target{Course: e.Course} }
func (e PresenceEnvelope) Origin() SessionID { return e.Session }
func (e PresenceEnvelope) SentAt() time.Time { return e.At }

// AckEnvelope confirms a chat or notification submission to its sender,
// regardless of how many recipients were live.
type AckEnvelope struct {
	Session SessionID
	Of      Kind
	At      time.Time
}

func (e AckEnvelope) Kind() Kind        { return KindAck }
func (e AckEnvelope) Audience() Target  { return Target{Session: e.Session} }
func (e AckEnvelope) Origin() SessionID { return e.Session }
func (e AckEnvelope) SentAt() time.Time { return e.At }

// ErrorEnvelope reports a dispatch validation failure to the offending
// sender only; every other session is left untouched.
type ErrorEnvelope struct {
	Session SessionID
	Message string
	At      time.Time
}

func (e ErrorEnvelope) Kind() Kind        { return KindError }
func (e ErrorEnvelope) Audience() Target  { return Target{Session: e.Session} }
func (e ErrorEnvelope) Origin() SessionID { return e.Session }
func (e ErrorEnvelope) SentAt() time.Time { return e.At }
