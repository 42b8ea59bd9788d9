package runtime

import (
	"log/slog"
	"time"

	"campus-relay/domain"
)

// Presence broadcasts status changes to shared-context audiences. Only
// group rooms ever receive presence traffic; role and self rooms are
// skipped.
type Presence struct {
	raw chan<- domain.Envelope
	log *slog.Logger
}

func NewPresence(raw chan<- domain.Envelope, log *slog.Logger) *Presence {
	return &Presence{raw: raw, log: log}
}

// Announce emits one presence envelope per group room in the given set.
// Callers pass the room set that is current for the transition: the rooms
// just joined on connect, the live set on an explicit status change, and
// the pre-removal set returned by LeaveAll on teardown. Delivery is
// best-effort; a full pipeline drops the announcement rather than block
// the caller.
func (p *Presence) Announce(sessionID domain.SessionID, identity domain.Identity,
	rooms []domain.RoomID, status domain.Status) {
	now := time.Now().UTC()
	for _, roomID := range rooms {
		course, ok := roomID.Course()
		if !ok {
			continue
		}
		env := domain.PresenceEnvelope{
			Session: sessionID,
			Sender:  identity.Snapshot(),
			Course:  course,
			Status:  status,
			At:      now,
		}
		select {
		case p.raw <- env:
		default:
			p.log.Warn("presence pipeline full, dropping announcement",
				"account_id", identity.AccountID, "status", string(status))
		}
	}
}
