package env

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	LogLevel  string `env:"RELAY_LOG_LEVEL,default=info"`
	DebugHTTP bool   `env:"RELAY_DEBUG_HTTP"`

	// IdentifyTimeout bounds how long a console has to answer the identity
	// probe before it is disconnected
	IdentifyTimeout time.Duration `env:"RELAY_IDENTIFY_TIMEOUT,default=10s"`

	// CommandRate is the number of payloads per second each connection may
	// send, 0 means unlimited
	CommandRate  float64 `env:"RELAY_COMMAND_RATE,default=0"`
	CommandBurst int     `env:"RELAY_COMMAND_BURST,default=10"`

	FilterConcurrency int `env:"RELAY_FILTER_CONCURRENCY,default=16"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
