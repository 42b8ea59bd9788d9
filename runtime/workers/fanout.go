package workers

import (
	"context"
	"log/slog"
	"time"

	"campus-relay/contract"
	"campus-relay/domain"
	"campus-relay/observability"
)

var _ contract.Worker = (*FanoutWorker)(nil)

// FanoutWorker is the terminal pipeline stage. It resolves each envelope's
// audience against the live registry, pushes the envelope to every matching
// session sink plus the permanent sinks (history, timeline), then
// acknowledges chat and notification submissions back to their sender.
//
// Delivery is best-effort with no retries or ordering guarantees across
// sessions; a full session buffer costs that session the envelope, nobody
// else.
type FanoutWorker struct {
	registry  contract.IRegistry
	envelopes chan domain.Envelope
	permanent []contract.EventSink
	stats     *observability.RelayStats
	log       *slog.Logger
}

func NewFanoutWorker(
	registry contract.IRegistry,
	envelopes chan domain.Envelope,
	stats *observability.RelayStats,
	log *slog.Logger) *FanoutWorker {
	return &FanoutWorker{
		registry:  registry,
		envelopes: envelopes,
		stats:     stats,
		log:       log,
	}
}

// Add registers permanent sinks receiving every envelope regardless of
// audience. Each sink filters the kinds it cares about.
func (w *FanoutWorker) Add(sinks ...contract.EventSink) *FanoutWorker {
	w.permanent = append(w.permanent, sinks...)
	return w
}

func (w *FanoutWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case env, ok := <-w.envelopes:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.fanout(ctx, env)
		}
	}
}

func (w *FanoutWorker) fanout(ctx context.Context, env domain.Envelope) {
	for _, sessionID := range w.resolve(env) {
		w.push(ctx, sessionID, env)
	}
	for _, sink := range w.permanent {
		if err := sink.Consume(ctx, env); err != nil {
			w.log.Warn("permanent sink rejected envelope",
				"kind", string(env.Kind()), "error", err)
		}
	}
	w.acknowledge(ctx, env)
}

// resolve expands the audience into live session ids. Room broadcasts
// exclude the originating session so a sender's connection never echoes
// its own submission; the sender's other devices still receive it.
// Explicit-recipient delivery does not exclude anything: a sender listing
// itself is served.
func (w *FanoutWorker) resolve(env domain.Envelope) []domain.SessionID {
	target := env.Audience()

	switch {
	case target.Session != "":
		return []domain.SessionID{target.Session}
	case len(target.Recipients) > 0:
		seen := make(map[domain.SessionID]struct{})
		var out []domain.SessionID
		for _, accountID := range target.Recipients {
			for _, id := range w.registry.SessionsOf(accountID) {
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
		return out
	case target.Role != "":
		return w.broadcast(domain.RoleRoom(target.Role), env.Origin())
	case target.Course != "":
		return w.broadcast(domain.GroupRoom(target.Course), env.Origin())
	default:
		return nil
	}
}

func (w *FanoutWorker) broadcast(roomID domain.RoomID, exclude domain.SessionID) []domain.SessionID {
	members := w.registry.SessionsIn(roomID)
	out := make([]domain.SessionID, 0, len(members))
	for _, id := range members {
		if id == exclude {
			continue
		}
		out = append(out, id)
	}
	return out
}

func (w *FanoutWorker) push(ctx context.Context, sessionID domain.SessionID, env domain.Envelope) {
	sink, ok := w.registry.Sink(sessionID)
	if !ok {
		// Session torn down between resolution and delivery.
		return
	}
	if err := sink.Consume(ctx, env); err != nil {
		w.stats.IncrDeliveriesDropped()
		w.log.Warn("delivery dropped",
			"session_id", string(sessionID),
			"kind", string(env.Kind()),
			"error", err)
		return
	}
	w.stats.IncrEnvelopesDelivered()
}

// acknowledge confirms chat and notification submissions to their sender.
// The ack means "accepted and fanned out", not "received by anyone": it is
// sent even when zero recipients were live.
func (w *FanoutWorker) acknowledge(ctx context.Context, env domain.Envelope) {
	kind := env.Kind()
	if kind != domain.KindChat && kind != domain.KindNotification {
		return
	}
	sink, ok := w.registry.Sink(env.Origin())
	if !ok {
		return
	}
	ack := domain.AckEnvelope{
		Session: env.Origin(),
		Of:      kind,
		At:      time.Now().UTC(),
	}
	if err := sink.Consume(ctx, ack); err != nil {
		w.log.Warn("ack lost", "session_id", string(env.Origin()), "error", err)
	}
}
