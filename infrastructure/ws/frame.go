package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"campus-relay/domain"
)

// Wire event names. Clients submit the first four; the relay emits the
// rest.
const (
	EventChatMessage      = "chat message"
	EventNotification     = "notification"
	EventTyping           = "typing"
	EventSetStatus        = "set status"
	EventMessageSent      = "message sent"
	EventNotificationSent = "notification sent"
	EventUserTyping       = "user typing"
	EventUserStatus       = "user status"
	EventError            = "error"
)

// Frame is the wire envelope in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type chatPayload struct {
	To      []string `json:"to,omitempty"`
	Course  string   `json:"course,omitempty"`
	Body    string   `json:"body"`
	MsgType string   `json:"msg_type,omitempty"`
}

type notificationPayload struct {
	To      []string `json:"to,omitempty"`
	Role    string   `json:"role,omitempty"`
	Course  string   `json:"course,omitempty"`
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	MsgType string   `json:"msg_type,omitempty"`
}

type typingPayload struct {
	To       []string `json:"to,omitempty"`
	Course   string   `json:"course,omitempty"`
	IsTyping bool     `json:"is_typing"`
}

type statusPayload struct {
	Status string `json:"status"`
}

// ToCommand decodes an inbound frame into a command bound to the session.
// Malformed JSON and unknown event names are decode errors answered on
// this connection only; target and body validation happens later in the
// dispatch worker.
func ToCommand(sessionID domain.SessionID, identity domain.Identity, frame Frame) (domain.Command, error) {
	now := time.Now().UTC()

	switch frame.Event {
	case EventChatMessage:
		var p chatPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return nil, fmt.Errorf("malformed %q payload: %w", frame.Event, err)
		}
		return domain.ChatCommand{
			SenderSession: sessionID,
			Sender:        identity,
			Recipients:    p.To,
			Course:        domain.CourseID(p.Course),
			Body:          p.Body,
			MsgType:       p.MsgType,
			At:            now,
		}, nil
	case EventNotification:
		var p notificationPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return nil, fmt.Errorf("malformed %q payload: %w", frame.Event, err)
		}
		return domain.NotificationCommand{
			SenderSession: sessionID,
			Sender:        identity,
			Recipients:    p.To,
			RoleTag:       p.Role,
			Course:        domain.CourseID(p.Course),
			Title:         p.Title,
			Body:          p.Body,
			MsgType:       p.MsgType,
			At:            now,
		}, nil
	case EventTyping:
		var p typingPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return nil, fmt.Errorf("malformed %q payload: %w", frame.Event, err)
		}
		return domain.TypingCommand{
			SenderSession: sessionID,
			Sender:        identity,
			Recipients:    p.To,
			Course:        domain.CourseID(p.Course),
			IsTyping:      p.IsTyping,
			At:            now,
		}, nil
	case EventSetStatus:
		var p statusPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return nil, fmt.Errorf("malformed %q payload: %w", frame.Event, err)
		}
		return domain.StatusCommand{
			SenderSession: sessionID,
			Sender:        identity,
			RawStatus:     p.Status,
			At:            now,
		}, nil
	default:
		return nil, fmt.Errorf("unknown event %q", frame.Event)
	}
}

type chatDelivery struct {
	ID      string        `json:"id"`
	From    domain.Sender `json:"from"`
	Body    string        `json:"body"`
	MsgType string        `json:"msg_type,omitempty"`
	At      time.Time     `json:"at"`
}

type notificationDelivery struct {
	ID      string        `json:"id"`
	From    domain.Sender `json:"from"`
	Title   string        `json:"title"`
	Body    string        `json:"body"`
	MsgType string        `json:"msg_type,omitempty"`
	At      time.Time     `json:"at"`
}

type typingDelivery struct {
	From     domain.Sender `json:"from"`
	IsTyping bool          `json:"is_typing"`
	At       time.Time     `json:"at"`
}

type statusDelivery struct {
	From   domain.Sender `json:"from"`
	Course string        `json:"course"`
	Status string        `json:"status"`
	At     time.Time     `json:"at"`
}

type ackDelivery struct {
	At time.Time `json:"at"`
}

type errorDelivery struct {
	Message string `json:"message"`
}

// ToFrame encodes an outbound envelope.
func ToFrame(e domain.Envelope) (Frame, error) {
	switch env := e.(type) {
	case domain.ChatEnvelope:
		return marshalFrame(EventChatMessage, chatDelivery{
			ID:      env.ID.String(),
			From:    env.Sender,
			Body:    env.Body,
			MsgType: env.MsgType,
			At:      env.At,
		})
	case domain.NotificationEnvelope:
		return marshalFrame(EventNotification, notificationDelivery{
			ID:      env.ID.String(),
			From:    env.Sender,
			Title:   env.Title,
			Body:    env.Body,
			MsgType: env.MsgType,
			At:      env.At,
		})
	case domain.TypingEnvelope:
		return marshalFrame(EventUserTyping, typingDelivery{
			From:     env.Sender,
			IsTyping: env.IsTyping,
			At:       env.At,
		})
	case domain.PresenceEnvelope:
		return marshalFrame(EventUserStatus, statusDelivery{
			From:   env.Sender,
			Course: string(env.Course),
			Status: string(env.Status),
			At:     env.At,
		})
	case domain.AckEnvelope:
		event := EventMessageSent
		if env.Of == domain.KindNotification {
			event = EventNotificationSent
		}
		return marshalFrame(event, ackDelivery{At: env.At})
	case domain.ErrorEnvelope:
		return marshalFrame(EventError, errorDelivery{Message: env.Message})
	default:
		return Frame{}, fmt.Errorf("unsupported envelope kind %q", string(e.Kind()))
	}
}

func marshalFrame(event string, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: data}, nil
}
