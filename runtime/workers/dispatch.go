package workers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"campus-relay/contract"
	"campus-relay/domain"
	"campus-relay/errors"
	"campus-relay/observability"

	"github.com/google/uuid"
)

var _ contract.Worker = (*DispatchWorker)(nil)

// DispatchWorker validates commands and turns them into raw envelopes for
// the moderation stage. A malformed command is answered with an error
// envelope pushed straight to the sender's sink; nothing malformed ever
// enters the pipeline, so other sessions are unaffected.
type DispatchWorker struct {
	registry contract.IRegistry
	commands chan domain.Command
	raw      chan domain.Envelope
	stats    *observability.RelayStats
	log      *slog.Logger
}

func NewDispatchWorker(
	registry contract.IRegistry,
	commands chan domain.Command,
	raw chan domain.Envelope,
	stats *observability.RelayStats,
	log *slog.Logger) *DispatchWorker {
	return &DispatchWorker{
		registry: registry,
		commands: commands,
		raw:      raw,
		stats:    stats,
		log:      log,
	}
}

func (w *DispatchWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case cmd, ok := <-w.commands:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			envelopes, err := w.toEnvelopes(cmd)
			if err != nil {
				w.reject(ctx, cmd, err)
				continue
			}
			for _, env := range envelopes {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case w.raw <- env:
				}
			}
		}
	}
}

func (w *DispatchWorker) toEnvelopes(cmd domain.Command) ([]domain.Envelope, error) {
	switch c := cmd.(type) {
	case domain.ChatCommand:
		return w.toChat(c)
	case domain.NotificationCommand:
		return w.toNotification(c)
	case domain.TypingCommand:
		return w.toTyping(c)
	case domain.StatusCommand:
		return w.toPresence(c)
	default:
		return nil, errors.ErrNoTarget
	}
}

func (w *DispatchWorker) toChat(c domain.ChatCommand) ([]domain.Envelope, error) {
	if c.Body == "" {
		return nil, errors.ErrEmptyBody
	}
	target, err := buildTarget(c.Recipients, "", c.Course)
	if err != nil {
		return nil, err
	}
	return []domain.Envelope{domain.ChatEnvelope{
		ID:      uuid.New(),
		Session: c.SenderSession,
		Sender:  c.Sender.Snapshot(),
		Target:  target,
		Body:    c.Body,
		MsgType: c.MsgType,
		At:      c.At,
	}}, nil
}

func (w *DispatchWorker) toNotification(c domain.NotificationCommand) ([]domain.Envelope, error) {
	if c.Title == "" || c.Body == "" {
		return nil, errors.ErrEmptyBody
	}
	target, err := buildTarget(c.Recipients, c.RoleTag, c.Course)
	if err != nil {
		return nil, err
	}
	return []domain.Envelope{domain.NotificationEnvelope{
		ID:      uuid.New(),
		Session: c.SenderSession,
		Sender:  c.Sender.Snapshot(),
		Target:  target,
		Title:   c.Title,
		Body:    c.Body,
		MsgType: c.MsgType,
		At:      c.At,
	}}, nil
}

func (w *DispatchWorker) toTyping(c domain.TypingCommand) ([]domain.Envelope, error) {
	target, err := buildTarget(c.Recipients, "", c.Course)
	if err != nil {
		return nil, err
	}
	return []domain.Envelope{domain.TypingEnvelope{
		Session:  c.SenderSession,
		Sender:   c.Sender.Snapshot(),
		Target:   target,
		IsTyping: c.IsTyping,
		At:       c.At,
	}}, nil
}

// toPresence applies the status change and fans one presence envelope per
// group room of the session. The registry is updated first so a failed
// lookup (session torn down mid-flight) produces no announcements at all.
func (w *DispatchWorker) toPresence(c domain.StatusCommand) ([]domain.Envelope, error) {
	status, err := domain.ParseStatus(c.RawStatus)
	if err != nil {
		return nil, err
	}
	if err := w.registry.SetStatus(c.SenderSession, status); err != nil {
		return nil, err
	}

	sender := c.Sender.Snapshot()
	var envelopes []domain.Envelope
	for _, roomID := range w.registry.Rooms(c.SenderSession) {
		course, ok := roomID.Course()
		if !ok {
			continue
		}
		envelopes = append(envelopes, domain.PresenceEnvelope{
			Session: c.SenderSession,
			Sender:  sender,
			Course:  course,
			Status:  status,
			At:      c.At,
		})
	}
	return envelopes, nil
}

// buildTarget resolves the audience with a fixed precedence: explicit
// recipients, then role, then course. A recipients field that is present
// but empty is rejected rather than silently falling through.
func buildTarget(recipients []string, roleTag string, course domain.CourseID) (domain.Target, error) {
	switch {
	case recipients != nil:
		if len(recipients) == 0 {
			return domain.Target{}, errors.ErrEmptyRecipients
		}
		return domain.Target{Recipients: recipients}, nil
	case roleTag != "":
		role, err := domain.ParseRole(roleTag)
		if err != nil {
			return domain.Target{}, err
		}
		return domain.Target{Role: role}, nil
	case course != "":
		if strings.TrimSpace(string(course)) == "" {
			return domain.Target{}, errors.ErrEmptyCourse
		}
		return domain.Target{Course: course}, nil
	default:
		return domain.Target{}, errors.ErrNoTarget
	}
}

// reject answers the offending sender directly, bypassing moderation and
// fanout. A sender torn down before the answer lands is dropped silently.
func (w *DispatchWorker) reject(ctx context.Context, cmd domain.Command, cause error) {
	w.stats.IncrValidationFailures()
	w.log.Info("rejecting command",
		"session_id", string(cmd.Session()),
		"account_id", cmd.From().AccountID,
		"error", cause)

	sink, ok := w.registry.Sink(cmd.Session())
	if !ok {
		return
	}
	env := domain.ErrorEnvelope{
		Session: cmd.Session(),
		Message: cause.Error(),
		At:      time.Now().UTC(),
	}
	if err := sink.Consume(ctx, env); err != nil {
		w.log.Warn("error envelope lost", "session_id", string(cmd.Session()), "error", err)
	}
}
