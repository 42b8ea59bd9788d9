package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"campus-relay/domain"
	"campus-relay/runtime"

	"github.com/gorilla/websocket"
)

// PumpConfig carries the per-connection timing knobs.
type PumpConfig struct {
	PingInterval   time.Duration
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// Client runs one authenticated connection: the read pump decodes frames
// into commands, the write pump drains the session sink. The read pump's
// exit is the teardown signal for everything the session owns.
type Client struct {
	conn      *websocket.Conn
	relay     *runtime.Relay
	sessionID domain.SessionID
	identity  domain.Identity
	sink      *SessionSink
	cfg       PumpConfig
	log       *slog.Logger

	done     chan struct{}
	tearOnce sync.Once
}

func NewClient(conn *websocket.Conn, relay *runtime.Relay,
	sessionID domain.SessionID, identity domain.Identity,
	sink *SessionSink, cfg PumpConfig, log *slog.Logger) *Client {
	return &Client{
		conn:      conn,
		relay:     relay,
		sessionID: sessionID,
		identity:  identity,
		sink:      sink,
		cfg:       cfg,
		log:       log,
		done:      make(chan struct{}),
	}
}

// Run blocks until the connection dies. The write pump runs in its own
// goroutine and is released through the done channel; the sink channel is
// never closed because fanout may still hold a reference.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
	c.teardown()
}

func (c *Client) teardown() {
	c.tearOnce.Do(func() {
		c.relay.Disconnect(c.sessionID)
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) readPump() {
	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.log.Warn("unexpected close",
					"session_id", string(c.sessionID), "error", err)
			}
			return
		}
		c.handleFrame(raw)
	}
}

// handleFrame decodes one inbound frame. Decode failures are answered on
// this connection only, through the sink so the write pump stays the
// single writer.
func (c *Client) handleFrame(raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.reportDecodeError(fmt.Sprintf("malformed frame: %v", err))
		return
	}

	cmd, err := ToCommand(c.sessionID, c.identity, frame)
	if err != nil {
		c.reportDecodeError(err.Error())
		return
	}
	c.relay.Dispatch(cmd)
}

func (c *Client) reportDecodeError(message string) {
	env := domain.ErrorEnvelope{
		Session: c.sessionID,
		Message: message,
		At:      time.Now().UTC(),
	}
	if err := c.sink.Consume(context.Background(), env); err != nil {
		c.log.Debug("decode error report lost",
			"session_id", string(c.sessionID), "error", err)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case env := <-c.sink.Events:
			if !c.writeEnvelope(env) {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeEnvelope(env domain.Envelope) bool {
	frame, err := ToFrame(env)
	if err != nil {
		c.log.Warn("unencodable envelope",
			"session_id", string(c.sessionID), "error", err)
		return true
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := c.conn.WriteJSON(frame); err != nil {
		c.log.Debug("write failed, dropping connection",
			"session_id", string(c.sessionID), "error", err)
		return false
	}
	return true
}
