package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"campus-relay/domain"
	"campus-relay/moderation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newModerationWorker(t *testing.T) (*ModerationWorker, chan domain.Envelope, chan domain.Envelope) {
	t.Helper()
	moderator, err := moderation.NewModerator([]string{"badger"}, '*')
	require.NoError(t, err)

	raw := make(chan domain.Envelope, 10)
	envelopes := make(chan domain.Envelope, 10)
	return NewModerationWorker(moderator, raw, envelopes, slog.Default()), raw, envelopes
}

func TestModerationWorker_Censors_Chat_Body(t *testing.T) {
	req := require.New(t)
	worker, raw, envelopes := newModerationWorker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	raw <- domain.ChatEnvelope{
		ID:      uuid.New(),
		Session: domain.NewSessionID(),
		Sender:  domain.Sender{AccountID: "u1", Role: domain.RoleStudent},
		Target:  domain.Target{Course: "courseA"},
		Body:    "a badger walked by",
		At:      time.Now().UTC(),
	}

	env := waitEnvelope(require.New(t), envelopes)
	chat := env.(domain.ChatEnvelope)
	req.Equal("a ****** walked by", chat.Body)
}

func TestModerationWorker_Passes_Presence_Untouched(t *testing.T) {
	req := require.New(t)
	worker, raw, envelopes := newModerationWorker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	in := domain.PresenceEnvelope{
		Session: domain.NewSessionID(),
		Sender:  domain.Sender{AccountID: "u1", Role: domain.RoleStudent},
		Course:  "courseA",
		Status:  domain.StatusOnline,
		At:      time.Now().UTC(),
	}
	raw <- in

	out := waitEnvelope(require.New(t), envelopes)
	req.Equal(in, out)
}
