// Package observability aggregates relay counters for periodic logging and
// the debug inspector. Counters are atomic; nothing here sits on the
// delivery hot path behind a lock.
package observability

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

type RelayStats struct {
	log *slog.Logger

	sessionsOpened      atomic.Uint64
	sessionsClosed      atomic.Uint64
	envelopesDispatched atomic.Uint64
	envelopesDelivered  atomic.Uint64
	deliveriesDropped   atomic.Uint64
	authFailures        atomic.Uint64
	validationFailures  atomic.Uint64
}

func NewRelayStats(log *slog.Logger) *RelayStats {
	return &RelayStats{log: log}
}

func (s *RelayStats) IncrSessionsOpened()      { s.sessionsOpened.Add(1) }
func (s *RelayStats) IncrSessionsClosed()      { s.sessionsClosed.Add(1) }
func (s *RelayStats) IncrEnvelopesDispatched() { s.envelopesDispatched.Add(1) }
func (s *RelayStats) IncrEnvelopesDelivered()  { s.envelopesDelivered.Add(1) }
func (s *RelayStats) IncrDeliveriesDropped()   { s.deliveriesDropped.Add(1) }
func (s *RelayStats) IncrAuthFailures()        { s.authFailures.Add(1) }
func (s *RelayStats) IncrValidationFailures()  { s.validationFailures.Add(1) }

// Snapshot feeds the debug inspector's stats table.
func (s *RelayStats) Snapshot() map[string]any {
	return map[string]any{
		"sessions_opened":      s.sessionsOpened.Load(),
		"sessions_closed":      s.sessionsClosed.Load(),
		"envelopes_dispatched": s.envelopesDispatched.Load(),
		"envelopes_delivered":  s.envelopesDelivered.Load(),
		"deliveries_dropped":   s.deliveriesDropped.Load(),
		"auth_failures":        s.authFailures.Load(),
		"validation_failures":  s.validationFailures.Load(),
	}
}

// Listen logs one stats line per interval until the context is canceled.
func (s *RelayStats) Listen(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Stopping relay stats")
			return
		case <-ticker.C:
			s.log.Info("relay stats",
				"sessions_opened", s.sessionsOpened.Load(),
				"sessions_closed", s.sessionsClosed.Load(),
				"envelopes_dispatched", s.envelopesDispatched.Load(),
				"envelopes_delivered", s.envelopesDelivered.Load(),
				"deliveries_dropped", s.deliveriesDropped.Load(),
				"auth_failures", s.authFailures.Load(),
				"validation_failures", s.validationFailures.Load(),
			)
		}
	}
}
