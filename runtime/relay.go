// Package runtime wires the relay pipeline together: session registry,
// room routing, presence, and the supervised worker stages. It carries no
// transport concerns; connections plug in through EventSinks.
package runtime

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"campus-relay/contract"
	"campus-relay/domain"
	"campus-relay/moderation"
	"campus-relay/observability"
	"campus-relay/projection"
	"campus-relay/repositories"
	"campus-relay/runtime/workers"
	"campus-relay/sink"
)

//go:embed censored/*
var censoredFolder embed.FS

// Relay owns the command pipeline: commands flow through a dispatch pool
// into moderation and finally fanout. Stages are connected by bounded
// channels and supervised, so a crashed stage restarts without dropping
// the relay.
type Relay struct {
	mu                sync.Mutex
	log               *slog.Logger
	numWorkers        int
	supervisor        contract.ISupervisor
	registry          contract.IRegistry
	router            *Router
	presence          *Presence
	stats             *observability.RelayStats
	timeline          *projection.Timeline
	historyRepository repositories.IHistoryRepository
	permanentSinks    []contract.EventSink
	commands          chan domain.Command
	raw               chan domain.Envelope
	envelopes         chan domain.Envelope
	charReplacement   rune
}

func NewRelay(log *slog.Logger, supervisor *workers.Supervisor,
	registry *Registry, historyRepository repositories.IHistoryRepository,
	stats *observability.RelayStats,
	numWorkers, bufferSize int, charReplacement rune) *Relay {
	raw := make(chan domain.Envelope, bufferSize)
	return &Relay{
		log:               log,
		numWorkers:        numWorkers,
		supervisor:        supervisor,
		registry:          registry,
		router:            NewRouter(registry),
		presence:          NewPresence(raw, log),
		stats:             stats,
		timeline:          projection.NewTimeline(),
		historyRepository: historyRepository,
		commands:          make(chan domain.Command, bufferSize),
		raw:               raw,
		envelopes:         make(chan domain.Envelope, bufferSize),
		charReplacement:   charReplacement,
	}
}

// Timeline exposes the in-memory projection for the debug inspector.
func (r *Relay) Timeline() *projection.Timeline { return r.timeline }

// Add registers extra permanent sinks before Start.
func (r *Relay) Add(sinks ...contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.permanentSinks = append(r.permanentSinks, sinks...)
}

// Connect binds an authenticated identity to a new session: register,
// join the computed rooms, then announce "online" to every shared group.
// The announcement is per session, so a second device of the same account
// produces a second announcement.
func (r *Relay) Connect(identity domain.Identity, eventSink contract.EventSink) (domain.SessionID, []domain.RoomID) {
	sessionID := r.registry.Register(identity, eventSink)
	rooms := r.router.JoinAll(sessionID, identity)
	r.stats.IncrSessionsOpened()
	r.presence.Announce(sessionID, identity, rooms, domain.StatusOnline)
	r.log.Info("session connected",
		"session_id", string(sessionID),
		"account_id", identity.AccountID,
		"rooms", len(rooms))
	return sessionID, rooms
}

// Disconnect tears a session down. The identity and pre-removal room set
// are captured before the registry forgets the session, so the "offline"
// announcement reaches exactly the rooms the session was in.
func (r *Relay) Disconnect(sessionID domain.SessionID) {
	identity, ok := r.registry.Identity(sessionID)
	if !ok {
		return
	}
	rooms := r.registry.LeaveAll(sessionID)
	r.stats.IncrSessionsClosed()
	r.presence.Announce(sessionID, identity, rooms, domain.StatusOffline)
	r.log.Info("session disconnected",
		"session_id", string(sessionID),
		"account_id", identity.AccountID)
}

// Dispatch submits a command to the pipeline. Backpressure policy is drop,
// not block: a full pipeline sheds the command and the connection read
// loop keeps draining its socket.
func (r *Relay) Dispatch(cmd domain.Command) {
	select {
	case r.commands <- cmd:
		r.stats.IncrEnvelopesDispatched()
	default:
		r.log.Warn("command channel full, dropping command",
			"session_id", string(cmd.Session()))
	}
}

// SessionCount reports the number of live sessions.
func (r *Relay) SessionCount() int { return r.registry.Len() }

// History pages one conversation scope newest-first.
func (r *Relay) History(scope string, cursor *string) ([]repositories.HistoryRecord, *string, error) {
	return r.historyRepository.Recent(scope, cursor)
}

// Start prepares all pipeline stages and blocks in the supervisor until
// the context is canceled. Heavy preparation (wordlist load, automaton
// build) happens before any lock is taken.
func (r *Relay) Start(ctx context.Context) error {
	dispatchPool := r.prepareDispatchPool()

	moderationWorker, err := r.prepareModeration("censored", r.charReplacement)
	if err != nil {
		return err
	}

	fanoutWorker := r.prepareFanout()

	r.mu.Lock()
	r.supervisor.Add(moderationWorker)
	r.supervisor.Add(fanoutWorker)
	for _, w := range dispatchPool {
		r.supervisor.Add(w)
	}
	r.mu.Unlock()

	r.log.Info("Starting relay and all supervised workers")
	r.supervisor.Run(ctx)
	return nil
}

func (r *Relay) prepareDispatchPool() []contract.Worker {
	var res []contract.Worker
	for i := 0; i < r.numWorkers; i++ {
		res = append(res, workers.NewDispatchWorker(r.registry, r.commands, r.raw, r.stats, r.log))
	}
	return res
}

// prepareModeration loads the embedded wordlists and builds the automaton.
func (r *Relay) prepareModeration(path string, charReplacement rune) (contract.Worker, error) {
	loader := NewCensoredLoader(censoredFolder)
	data, err := loader.LoadAll(path)
	if err != nil {
		return nil, err
	}

	r.log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	r.log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

	moderator, err := moderation.NewModerator(data.Words, charReplacement)
	if err != nil {
		return nil, err
	}

	return workers.NewModerationWorker(moderator, r.raw, r.envelopes, r.log), nil
}

func (r *Relay) prepareFanout() contract.Worker {
	fanoutWorker := workers.NewFanoutWorker(r.registry, r.envelopes, r.stats, r.log)
	fanoutWorker.Add(sink.NewHistorySink(r.historyRepository, r.log), r.timeline)

	r.mu.Lock()
	extra := r.permanentSinks
	r.mu.Unlock()
	fanoutWorker.Add(extra...)

	return fanoutWorker
}

// Stop cancels the supervision scope; in-flight envelopes past the
// channel stages are abandoned.
func (r *Relay) Stop() {
	r.log.Info("Requesting relay shutdown")
	r.supervisor.Stop()
}
