package workers

import (
	"context"
	"log/slog"

	"campus-relay/contract"
	"campus-relay/domain"
	"campus-relay/moderation"
)

var _ contract.Worker = (*ModerationWorker)(nil)

// ModerationWorker sits between dispatch and fanout. Chat and notification
// bodies are censored before any audience sees them; typing, presence and
// system envelopes carry no free text and pass through untouched.
type ModerationWorker struct {
	moderator moderation.Moderator
	raw       chan domain.Envelope
	envelopes chan domain.Envelope
	log       *slog.Logger
}

func NewModerationWorker(moderator moderation.Moderator,
	raw, envelopes chan domain.Envelope, log *slog.Logger) *ModerationWorker {
	return &ModerationWorker{
		moderator: moderator,
		raw:       raw,
		envelopes: envelopes,
		log:       log,
	}
}

func (w ModerationWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case env, ok := <-w.raw:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			select {
			case <-ctx.Done():
				w.log.Debug("Stopping worker")
				return ctx.Err()
			case w.envelopes <- w.sanitize(env):
			}
		}
	}
}

func (w ModerationWorker) sanitize(env domain.Envelope) domain.Envelope {
	switch e := env.(type) {
	case domain.ChatEnvelope:
		sanitized, found := w.moderator.Censor(e.Body)
		if len(found) > 0 {
			w.log.Info("censored chat body",
				"account_id", e.Sender.AccountID, "words", found)
		}
		e.Body = sanitized
		return e
	case domain.NotificationEnvelope:
		sanitized, found := w.moderator.Censor(e.Body)
		if len(found) > 0 {
			w.log.Info("censored notification body",
				"account_id", e.Sender.AccountID, "words", found)
		}
		e.Body = sanitized
		return e
	default:
		return env
	}
}
