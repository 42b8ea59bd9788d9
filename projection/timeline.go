// Package projection builds in-memory views from observed envelopes for
// the debug inspector. Projections never emit envelopes back into the
// pipeline.
package projection

import (
	"context"
	"sync"

	"campus-relay/domain"
	"campus-relay/sink"
)

// maxEntriesPerScope bounds memory per conversation; older entries are
// evicted first.
const maxEntriesPerScope = 100

// Entry is one timeline line, already reduced to what the inspector shows.
type Entry struct {
	Kind   domain.Kind
	Sender domain.Sender
	Body   string
}

// Timeline keeps the recent chat and notification traffic per scope.
// Safe for concurrent use; the fanout worker writes, the debug server
// reads.
type Timeline struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

func NewTimeline() *Timeline {
	return &Timeline{entries: make(map[string][]Entry)}
}

func (t *Timeline) Consume(_ context.Context, e domain.Envelope) error {
	switch env := e.(type) {
	case domain.ChatEnvelope:
		t.append(sink.ScopeOf(env.Sender.AccountID, env.Target), Entry{
			Kind:   domain.KindChat,
			Sender: env.Sender,
			Body:   env.Body,
		})
	case domain.NotificationEnvelope:
		t.append(sink.ScopeOf(env.Sender.AccountID, env.Target), Entry{
			Kind:   domain.KindNotification,
			Sender: env.Sender,
			Body:   env.Title + ": " + env.Body,
		})
	}
	return nil
}

func (t *Timeline) append(scope string, entry Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries := append(t.entries[scope], entry)
	if len(entries) > maxEntriesPerScope {
		entries = entries[len(entries)-maxEntriesPerScope:]
	}
	t.entries[scope] = entries
}

// Recent returns a copy of the scope's entries, oldest first.
func (t *Timeline) Recent(scope string) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries, ok := t.entries[scope]
	if !ok {
		return nil
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Scopes lists every scope that has at least one entry.
func (t *Timeline) Scopes() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.entries))
	for scope := range t.entries {
		out = append(out, scope)
	}
	return out
}
