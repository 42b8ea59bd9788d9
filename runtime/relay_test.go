package runtime

import (
	"log/slog"
	"testing"
	"time"

	"campus-relay/domain"
	"campus-relay/observability"
	"campus-relay/runtime/workers"

	"github.com/stretchr/testify/require"
)

func TestRelay_Dispatch_Counts_Only_Accepted_Commands(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	stats := observability.NewRelayStats(log)

	// Given a pipeline with room for a single pending command and no
	// workers draining it
	relay := NewRelay(log, workers.NewSupervisor(log), NewRegistry(log),
		nil, stats, 1, 1, '*')

	cmd := domain.ChatCommand{
		SenderSession: domain.NewSessionID(),
		Sender:        domain.Identity{AccountID: "u1", Role: domain.RoleStudent},
		Recipients:    []string{"u2"},
		Body:          "hello",
		At:            time.Now().UTC(),
	}

	// When one command fills the channel and a second one is shed
	relay.Dispatch(cmd)
	relay.Dispatch(cmd)

	// Then only the accepted command counts as dispatched
	snapshot := stats.Snapshot()
	req.Equal(uint64(1), snapshot["envelopes_dispatched"])
}
