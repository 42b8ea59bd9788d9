package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host                 string `env:"HOST,required=true"`
	Port                 int    `env:"PORT,required=true"`
	BufferSize           int    `env:"BUFFER_SIZE,required=true"`
	ConnectionBufferSize int    `env:"CONNECTION_BUFFER_SIZE,required=true"`
	NumberOfWorkers      int    `env:"NUMBER_OF_WORKERS,required=true"`
	CharReplacement      string `env:"CHARACTER_REPLACEMENT,required=true"`
	LimitRecords         *int   `env:"LIMIT_RECORDS"`

	DirectoryTimeout  time.Duration `env:"DIRECTORY_TIMEOUT,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
	JWTSecret         string        `env:"JWT_SECRET,required=true"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`

	PingInterval   time.Duration `env:"PING_INTERVAL,required=true"`
	PongTimeout    time.Duration `env:"PONG_TIMEOUT,required=true"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT,required=true"`
	MaxMessageSize int64         `env:"MAX_MESSAGE_SIZE,required=true"`

	MetricInterval time.Duration `env:"METRIC_INTERVAL,required=true"`
	DebugPort      int           `env:"DEBUG_PORT"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
