package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"campus-relay/domain"
	"campus-relay/repositories"
)

// HistorySink persists chat and notification envelopes. Every other kind
// is transient and ignored.
type HistorySink struct {
	repository repositories.IHistoryRepository
	log        *slog.Logger
}

func NewHistorySink(repository repositories.IHistoryRepository, log *slog.Logger) HistorySink {
	return HistorySink{repository: repository, log: log}
}

func (s HistorySink) Consume(_ context.Context, e domain.Envelope) error {
	switch env := e.(type) {
	case domain.ChatEnvelope:
		return s.repository.Store(repositories.HistoryRecord{
			ID:      env.ID,
			Scope:   ScopeOf(env.Sender.AccountID, env.Target),
			Kind:    string(domain.KindChat),
			Sender:  env.Sender,
			Body:    env.Body,
			MsgType: env.MsgType,
			At:      env.At,
		})
	case domain.NotificationEnvelope:
		return s.repository.Store(repositories.HistoryRecord{
			ID:      env.ID,
			Scope:   ScopeOf(env.Sender.AccountID, env.Target),
			Kind:    string(domain.KindNotification),
			Sender:  env.Sender,
			Title:   env.Title,
			Body:    env.Body,
			MsgType: env.MsgType,
			At:      env.At,
		})
	default:
		s.log.Debug(fmt.Sprintf("Transient envelope, not persisted : %v", string(e.Kind())))
		return nil
	}
}

// ScopeOf derives the conversation key a record is filed under. Room
// targets use the room id directly. Explicit-recipient targets use a
// participant set including the sender, sorted and deduplicated, so both
// sides of a direct exchange page the same scope.
func ScopeOf(senderAccountID string, target domain.Target) string {
	switch {
	case len(target.Recipients) > 0:
		seen := map[string]struct{}{senderAccountID: {}}
		participants := []string{senderAccountID}
		for _, accountID := range target.Recipients {
			if _, ok := seen[accountID]; ok {
				continue
			}
			seen[accountID] = struct{}{}
			participants = append(participants, accountID)
		}
		sort.Strings(participants)
		return "direct:" + strings.Join(participants, ",")
	case target.Role != "":
		return string(domain.RoleRoom(target.Role))
	case target.Course != "":
		return string(domain.GroupRoom(target.Course))
	default:
		return string(domain.SelfRoom(senderAccountID))
	}
}
