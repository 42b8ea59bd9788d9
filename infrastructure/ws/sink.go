package ws

import (
	"context"

	"campus-relay/domain"
	"campus-relay/errors"
)

// SessionSink bridges the fanout worker to one connection's write pump.
// The Events channel is never closed: envelopes may still be in flight
// from fanout when the connection dies, and the write pump exits through
// its done signal instead.
type SessionSink struct {
	Events chan domain.Envelope
}

func NewSessionSink(bufferSize int) *SessionSink {
	return &SessionSink{Events: make(chan domain.Envelope, bufferSize)}
}

// Consume hands an envelope to the write pump without ever blocking the
// fanout worker. A full buffer means this session is too slow; the
// envelope is dropped for this session only.
func (s *SessionSink) Consume(ctx context.Context, e domain.Envelope) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrSlowConsumer
	}
}
