// Package ws is the WebSocket transport in front of the relay runtime.
// The handshake authenticates before upgrading; once a socket is live the
// client pumps own it entirely.
package ws

import (
	goerrors "errors"
	"log/slog"
	"net/http"

	"campus-relay/auth"
	"campus-relay/directory"
	"campus-relay/errors"
	"campus-relay/observability"
	"campus-relay/runtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Server struct {
	relay         *runtime.Relay
	authenticator *auth.Authenticator
	accounts      directory.IAccountService
	stats         *observability.RelayStats
	upgrader      websocket.Upgrader
	sinkBuffer    int
	pump          PumpConfig
	log           *slog.Logger
}

func NewServer(relay *runtime.Relay, authenticator *auth.Authenticator,
	accounts directory.IAccountService, stats *observability.RelayStats,
	sinkBuffer int, pump PumpConfig, log *slog.Logger) *Server {
	return &Server{
		relay:         relay,
		authenticator: authenticator,
		accounts:      accounts,
		stats:         stats,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sinkBuffer: sinkBuffer,
		pump:       pump,
		log:        log,
	}
}

func (s *Server) Routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	r.POST("/register", s.handleRegister)
	r.POST("/login", s.handleLogin)
	r.GET("/ws", s.handleWS)
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.relay.SessionCount()})
}

func (s *Server) handleRegister(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request"})
		return
	}

	token, err := s.accounts.Register(req)
	if err != nil {
		switch {
		case goerrors.Is(err, errors.ErrUserAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": errors.ErrUserAlreadyExists.Error()})
		case goerrors.Is(err, errors.ErrTokenGeneration):
			c.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrTokenGeneration.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": string(token)})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request"})
		return
	}

	token, err := s.accounts.Login(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrInvalidCredentials.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": string(token)})
}

// handleWS authenticates, then upgrades. Rejection happens before the
// upgrade so an unauthenticated peer never holds a socket, a session, or
// any room state.
func (s *Server) handleWS(c *gin.Context) {
	credential := auth.BearerFromRequest(c.Request)
	identity, err := s.authenticator.Resolve(c.Request.Context(), credential)
	if err != nil {
		s.stats.IncrAuthFailures()
		status := http.StatusUnauthorized
		if goerrors.Is(err, errors.ErrAccountNotFound) {
			status = http.StatusNotFound
		}
		s.log.Info("handshake rejected", "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("upgrade failed", "account_id", identity.AccountID, "error", err)
		return
	}

	sink := NewSessionSink(s.sinkBuffer)
	sessionID, _ := s.relay.Connect(identity, sink)

	client := NewClient(conn, s.relay, sessionID, identity, sink, s.pump, s.log)
	go client.Run()
}
