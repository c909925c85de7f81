package host

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds host tunables loaded from the environment.
type Config struct {
	// MaxInFlight bounds the number of concurrently executing
	// invocations. Zero means unbounded.
	MaxInFlight int `env:"HOSTLINK_MAX_IN_FLIGHT" envDefault:"0"`

	// ResponseTimeout is the default bounded wait used by callers that
	// block for a response, such as the test harness.
	ResponseTimeout time.Duration `env:"HOSTLINK_RESPONSE_TIMEOUT" envDefault:"10s"`
}

// ConfigFromEnv loads configuration from environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
