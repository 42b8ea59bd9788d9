package e2e

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config tunes the in-process stack the scenarios run against. Every knob
// has a default so the suite runs without any environment at all.
type Config struct {
	NumWorkers int `envconfig:"E2E_NUMBER_OF_WORKERS" default:"2"`
	BufferSize int `envconfig:"E2E_BUFFER_SIZE" default:"64"`
	SinkBuffer int `envconfig:"E2E_CONNECTION_BUFFER_SIZE" default:"32"`

	JWTSecret     string        `envconfig:"E2E_JWT_SECRET" default:"e2e-signing-secret"`
	TokenDuration time.Duration `envconfig:"E2E_TOKEN_DURATION" default:"1h"`

	// E2E_READ_TIMEOUT bounds every frame read; a scenario step that does
	// not see its frame within it fails instead of hanging the suite.
	ReadTimeout  time.Duration `envconfig:"E2E_READ_TIMEOUT" default:"3s"`
	PingInterval time.Duration `envconfig:"E2E_PING_INTERVAL" default:"20s"`
	PongTimeout  time.Duration `envconfig:"E2E_PONG_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `envconfig:"E2E_WRITE_TIMEOUT" default:"5s"`
}

func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
