package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"campus-relay/auth"
	"campus-relay/directory"
	"campus-relay/infrastructure/ws"
	"campus-relay/observability"
	"campus-relay/repositories"
	"campus-relay/runtime"
	"campus-relay/runtime/workers"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

// BaseRelaySuite boots the full stack in-process: BadgerDB in a temp dir,
// the supervised relay pipeline, and the HTTP/WebSocket front behind an
// httptest server. Scenarios talk to it exactly like a real client would.
type BaseRelaySuite struct {
	suite.Suite
	Config Config
	Relay  *runtime.Relay

	db     *badger.DB
	server *httptest.Server
	cancel context.CancelFunc
}

func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	auth.SetSigningKey(s.Config.JWTSecret)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.db, err = badger.Open(badger.DefaultOptions(s.T().TempDir()).
		WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)

	stats := observability.NewRelayStats(log)
	registry := runtime.NewRegistry(log)
	history := repositories.NewHistoryRepository(s.db, log, nil)
	accounts := directory.NewAccountRepository(s.db)
	service := directory.NewAccountService(accounts, s.Config.TokenDuration)
	authenticator := auth.NewAuthenticator(accounts, time.Second, log)

	s.Relay = runtime.NewRelay(log, workers.NewSupervisor(log), registry,
		history, stats, s.Config.NumWorkers, s.Config.BufferSize, '*')

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() { _ = s.Relay.Start(ctx) }()

	pump := ws.PumpConfig{
		PingInterval:   s.Config.PingInterval,
		PongTimeout:    s.Config.PongTimeout,
		WriteTimeout:   s.Config.WriteTimeout,
		MaxMessageSize: 64 * 1024,
	}
	server := ws.NewServer(s.Relay, authenticator, service, stats,
		s.Config.SinkBuffer, pump, log)
	s.server = httptest.NewServer(server.Routes())
}

func (s *BaseRelaySuite) TearDownSuite() {
	s.server.Close()
	s.cancel()
	s.Require().NoError(s.db.Close())
}

// RegisterAccount creates an account over HTTP and returns its token.
func (s *BaseRelaySuite) RegisterAccount(email, name, role string, courses []string) string {
	body, err := json.Marshal(map[string]any{
		"email":    email,
		"password": "ComplexPass123!",
		"name":     name,
		"role":     role,
		"courses":  courses,
	})
	s.Require().NoError(err)

	resp, err := http.Post(s.server.URL+"/register", "application/json", bytes.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var payload struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&payload))
	s.Require().NotEmpty(payload.Token)
	return payload.Token
}

func (s *BaseRelaySuite) wsURL(token string) string {
	u := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
	if token != "" {
		u += "?token=" + url.QueryEscape(token)
	}
	return u
}

// Dial opens an authenticated WebSocket connection.
func (s *BaseRelaySuite) Dial(token string) *websocket.Conn {
	conn, resp, err := websocket.DefaultDialer.Dial(s.wsURL(token), nil)
	s.Require().NoError(err)
	if resp != nil {
		defer resp.Body.Close()
	}
	return conn
}

// DialRejected attempts a handshake that must fail before the upgrade and
// returns the HTTP status the server answered with.
func (s *BaseRelaySuite) DialRejected(token string) int {
	conn, resp, err := websocket.DefaultDialer.Dial(s.wsURL(token), nil)
	s.Require().Error(err)
	s.Require().Nil(conn)
	s.Require().NotNil(resp)
	defer resp.Body.Close()
	return resp.StatusCode
}

// SendFrame submits one client event.
func (s *BaseRelaySuite) SendFrame(conn *websocket.Conn, event string, payload any) {
	data, err := json.Marshal(payload)
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteJSON(ws.Frame{Event: event, Data: data}))
}

// WaitEvent reads frames until one matches the wanted event name. Frames of
// other kinds are skimmed, so interleaved presence or ack traffic does not
// break a step.
func (s *BaseRelaySuite) WaitEvent(conn *websocket.Conn, event string) ws.Frame {
	deadline := time.Now().Add(s.Config.ReadTimeout)
	for {
		s.Require().NoError(conn.SetReadDeadline(deadline))
		var frame ws.Frame
		err := conn.ReadJSON(&frame)
		s.Require().NoError(err, "no %q frame within %v", event, s.Config.ReadTimeout)
		if frame.Event == event {
			return frame
		}
	}
}

// Decode unpacks a frame payload into the given struct.
func (s *BaseRelaySuite) Decode(frame ws.Frame, into any) {
	s.Require().NoError(json.Unmarshal(frame.Data, into))
}
