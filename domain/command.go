package domain

import "time"

// Command is a client intent submitted through an active session. Each
// carries the sender session id and the identity snapshot taken at connect
// time, so dispatch never re-reads the directory.
type Command interface {
	Session() SessionID
	From() Identity
}

type ChatCommand struct {
	SenderSession SessionID
	Sender        Identity
	Recipients    []string
	Course        CourseID
	Body          string `validate:"required"`
	MsgType       string
	At            time.Time
}

func (c ChatCommand) Session() SessionID { return c.SenderSession }
func (c ChatCommand) From() Identity     { return c.Sender }

type NotificationCommand struct {
	SenderSession SessionID
	Sender        Identity
	Recipients    []string
	// RoleTag is the raw wire value; the dispatch worker parses it so an
	// unknown tag is a validation error, not a silent no-delivery.
	RoleTag string
	Course  CourseID
	Title   string `validate:"required"`
	Body    string `validate:"required"`
	MsgType string
	At      time.Time
}

func (c NotificationCommand) Session() SessionID { return c.SenderSession }
func (c NotificationCommand) From() Identity     { return c.Sender }

type TypingCommand struct {
	SenderSession SessionID
	Sender        Identity
	Recipients    []string
	Course        CourseID
	IsTyping      bool
	At            time.Time
}

func (c TypingCommand) Session() SessionID { return c.SenderSession }
func (c TypingCommand) From() Identity     { return c.Sender }

type StatusCommand struct {
	SenderSession SessionID
	Sender        Identity
	// RawStatus is parsed by the dispatch worker.
	RawStatus string
	At        time.Time
}

func (c StatusCommand) Session() SessionID { return c.SenderSession }
func (c StatusCommand) From() Identity     { return c.Sender }
