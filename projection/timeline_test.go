package projection

import (
	"context"
	"fmt"
	"testing"
	"time"

	"campus-relay/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func chatEnvelope(sender, course, body string) domain.ChatEnvelope {
	return domain.ChatEnvelope{
		ID:      uuid.New(),
		Session: domain.NewSessionID(),
		Sender:  domain.Sender{AccountID: sender, Name: sender, Role: domain.RoleStudent},
		Target:  domain.Target{Course: domain.CourseID(course)},
		Body:    body,
		At:      time.Now().UTC(),
	}
}

func TestTimeline_Consume_Chat(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline()
	ctx := context.Background()

	req.NoError(timeline.Consume(ctx, chatEnvelope("u1", "courseA", "Hello")))
	req.NoError(timeline.Consume(ctx, chatEnvelope("u2", "courseA", "Hi back")))

	entries := timeline.Recent("group:courseA")
	req.Len(entries, 2)
	req.Equal("u1", entries[0].Sender.AccountID)
	req.Equal("Hello", entries[0].Body)
	req.Equal("u2", entries[1].Sender.AccountID)
}

func TestTimeline_Consume_Notification_Joins_Title_And_Body(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline()

	env := domain.NotificationEnvelope{
		ID:      uuid.New(),
		Session: domain.NewSessionID(),
		Sender:  domain.Sender{AccountID: "t1", Name: "Ada", Role: domain.RoleTeacher},
		Target:  domain.Target{Role: domain.RoleStudent},
		Title:   "Exam",
		Body:    "Tomorrow at 9",
		At:      time.Now().UTC(),
	}
	req.NoError(timeline.Consume(context.Background(), env))

	entries := timeline.Recent("role:student")
	req.Len(entries, 1)
	req.Equal(domain.KindNotification, entries[0].Kind)
	req.Equal("Exam: Tomorrow at 9", entries[0].Body)
}

func TestTimeline_Ignores_Transient_Envelopes(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline()

	req.NoError(timeline.Consume(context.Background(), domain.TypingEnvelope{
		Session:  domain.NewSessionID(),
		Sender:   domain.Sender{AccountID: "u1"},
		Target:   domain.Target{Course: "courseA"},
		IsTyping: true,
	}))

	req.Empty(timeline.Scopes())
}

func TestTimeline_Evicts_Oldest_Beyond_Cap(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline()

	for i := 0; i < maxEntriesPerScope+10; i++ {
		body := fmt.Sprintf("message %d", i)
		req.NoError(timeline.Consume(context.Background(), chatEnvelope("u1", "courseA", body)))
	}

	entries := timeline.Recent("group:courseA")
	req.Len(entries, maxEntriesPerScope)
	req.Equal("message 10", entries[0].Body)
	req.Equal(fmt.Sprintf("message %d", maxEntriesPerScope+9), entries[len(entries)-1].Body)
}
