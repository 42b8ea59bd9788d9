package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"campus-relay/domain"
	"campus-relay/errors"
	"campus-relay/mocks"
	"campus-relay/observability"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newFanoutWorker(registry *mocks.MockIRegistry) *FanoutWorker {
	stats := observability.NewRelayStats(slog.Default())
	return NewFanoutWorker(registry, make(chan domain.Envelope, 10), stats, slog.Default())
}

func chatTo(origin domain.SessionID, target domain.Target) domain.ChatEnvelope {
	return domain.ChatEnvelope{
		ID:      uuid.New(),
		Session: origin,
		Sender:  domain.Sender{AccountID: "u1", Name: "U One", Role: domain.RoleStudent},
		Target:  target,
		Body:    "hello",
		At:      time.Now().UTC(),
	}
}

func TestFanoutWorker_Explicit_Recipients_Delivery(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockIRegistry(ctrl)
	worker := newFanoutWorker(registry)

	origin := domain.NewSessionID()
	s2, s3 := domain.NewSessionID(), domain.NewSessionID()
	sink2 := mocks.NewMockEventSink(ctrl)
	sink3 := mocks.NewMockEventSink(ctrl)
	originSink := mocks.NewMockEventSink(ctrl)

	env := chatTo(origin, domain.Target{Recipients: []string{"u2", "u3"}})

	registry.EXPECT().SessionsOf("u2").Return([]domain.SessionID{s2})
	registry.EXPECT().SessionsOf("u3").Return([]domain.SessionID{s3})
	registry.EXPECT().Sink(s2).Return(sink2, true)
	registry.EXPECT().Sink(s3).Return(sink3, true)
	registry.EXPECT().Sink(origin).Return(originSink, true)

	// Then both recipients get the envelope and the sender gets an ack
	sink2.EXPECT().Consume(gomock.Any(), env).Return(nil).Times(1)
	sink3.EXPECT().Consume(gomock.Any(), env).Return(nil).Times(1)
	originSink.EXPECT().
		Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e domain.Envelope) error {
			ack, ok := e.(domain.AckEnvelope)
			req.True(ok)
			req.Equal(domain.KindChat, ack.Of)
			return nil
		}).
		Times(1)

	worker.fanout(context.Background(), env)
}

func TestFanoutWorker_Group_Broadcast_Excludes_Origin(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockIRegistry(ctrl)
	worker := newFanoutWorker(registry)

	origin, other := domain.NewSessionID(), domain.NewSessionID()
	otherSink := mocks.NewMockEventSink(ctrl)
	originSink := mocks.NewMockEventSink(ctrl)

	env := chatTo(origin, domain.Target{Course: "courseA"})

	registry.EXPECT().
		SessionsIn(domain.GroupRoom("courseA")).
		Return([]domain.SessionID{origin, other})
	registry.EXPECT().Sink(other).Return(otherSink, true)
	registry.EXPECT().Sink(origin).Return(originSink, true)

	// Then only the other member gets the chat; origin only sees the ack
	otherSink.EXPECT().Consume(gomock.Any(), env).Return(nil).Times(1)
	originSink.EXPECT().
		Consume(gomock.Any(), gomock.AssignableToTypeOf(domain.AckEnvelope{})).
		Return(nil).
		Times(1)

	worker.fanout(context.Background(), env)
}

func TestFanoutWorker_Slow_Consumer_Does_Not_Block_Others(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockIRegistry(ctrl)
	worker := newFanoutWorker(registry)

	origin := domain.NewSessionID()
	slow, healthy := domain.NewSessionID(), domain.NewSessionID()
	slowSink := mocks.NewMockEventSink(ctrl)
	healthySink := mocks.NewMockEventSink(ctrl)

	env := domain.TypingEnvelope{
		Session: origin,
		Sender:  domain.Sender{AccountID: "u1", Role: domain.RoleStudent},
		Target:  domain.Target{Recipients: []string{"u2", "u3"}},
		At:      time.Now().UTC(),
	}

	registry.EXPECT().SessionsOf("u2").Return([]domain.SessionID{slow})
	registry.EXPECT().SessionsOf("u3").Return([]domain.SessionID{healthy})
	registry.EXPECT().Sink(slow).Return(slowSink, true)
	registry.EXPECT().Sink(healthy).Return(healthySink, true)

	// Given a full buffer on the first session
	slowSink.EXPECT().Consume(gomock.Any(), env).Return(errors.ErrSlowConsumer).Times(1)
	// Then the second session is still served, and typing is never acked
	healthySink.EXPECT().Consume(gomock.Any(), env).Return(nil).Times(1)

	worker.fanout(context.Background(), env)
}

func TestFanoutWorker_Permanent_Sinks_Receive_Every_Envelope(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockIRegistry(ctrl)
	permanent := mocks.NewMockEventSink(ctrl)
	worker := newFanoutWorker(registry).Add(permanent)

	origin := domain.NewSessionID()
	env := chatTo(origin, domain.Target{Course: "courseA"})

	registry.EXPECT().SessionsIn(domain.GroupRoom("courseA")).Return(nil)
	// Origin torn down before the ack: nothing to answer, still a success
	registry.EXPECT().Sink(origin).Return(nil, false)

	permanent.EXPECT().Consume(gomock.Any(), env).Return(nil).Times(1)

	worker.fanout(context.Background(), env)
}

func TestFanoutWorker_Recipients_Deduplicates_Sessions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockIRegistry(ctrl)
	worker := newFanoutWorker(registry)

	origin := domain.NewSessionID()
	shared := domain.NewSessionID()
	sharedSink := mocks.NewMockEventSink(ctrl)

	env := chatTo(origin, domain.Target{Recipients: []string{"u2", "u2"}})

	registry.EXPECT().SessionsOf("u2").Return([]domain.SessionID{shared}).Times(2)
	registry.EXPECT().Sink(shared).Return(sharedSink, true)
	registry.EXPECT().Sink(origin).Return(nil, false)

	// Then the duplicated recipient is delivered once
	sharedSink.EXPECT().Consume(gomock.Any(), env).Return(nil).Times(1)

	worker.fanout(context.Background(), env)
}
