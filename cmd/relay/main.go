package main

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-relay/auth"
	"campus-relay/directory"
	"campus-relay/infrastructure/ws"
	"campus-relay/internal"
	"campus-relay/observability"
	"campus-relay/repositories"
	"campus-relay/runtime"
	"campus-relay/runtime/workers"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes give a meaningful status to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownGrace = 5 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components and manages the server lifecycle. Exiting
// through a return instead of os.Exit keeps every defer (database close,
// signal release) running on all paths.
func run() (int, error) {
	// 1. Configuration & logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	auth.SetSigningKey(config.JWTSecret)

	ctx := context.Background()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(ctx, config, logger))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Core components
	stats := observability.NewRelayStats(logger)
	registry := runtime.NewRegistry(logger)
	historyRepository := repositories.NewHistoryRepository(db, logger, config.LimitRecords)
	accountRepository := directory.NewAccountRepository(db)
	accountService := directory.NewAccountService(accountRepository, config.AuthTokenDuration)
	authenticator := auth.NewAuthenticator(accountRepository, config.DirectoryTimeout, logger)
	supervisor := workers.NewSupervisor(logger)

	relay := runtime.NewRelay(logger, supervisor, registry, historyRepository, stats,
		config.NumberOfWorkers, config.BufferSize, charReplacement)

	if config.DebugPort > 0 {
		endpoint := "/inspect"
		logger.Info("Debug inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		internal.StartDebugServer(db, config.DebugPort, endpoint, internal.DefaultMapper, stats.Snapshot)
	}

	// 4. Context & signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 2)

	// 5. Start the pipeline (workers under supervision)
	go func() {
		logger.Info("Starting relay...")
		if err := relay.Start(ctx); err != nil {
			errChan <- fmt.Errorf("relay error: %w", err)
		}
	}()

	go stats.Listen(ctx, config.MetricInterval)

	// 6. HTTP / WebSocket server
	server := ws.NewServer(relay, authenticator, accountService, stats,
		config.ConnectionBufferSize,
		ws.PumpConfig{
			PingInterval:   config.PingInterval,
			PongTimeout:    config.PongTimeout,
			WriteTimeout:   config.WriteTimeout,
			MaxMessageSize: config.MaxMessageSize,
		},
		logger)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{Addr: address, Handler: server.Routes()}

	go func() {
		logger.Info("Starting WebSocket server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !goerrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for stop or error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Graceful shutdown: stop accepting connections, then drain workers.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	relay.Stop()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(ctx context.Context, config internal.Config, logger *slog.Logger) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}
