package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// NATS_URL enables the relay scenario, it is skipped when empty
	NatsURL string `envconfig:"NATS_URL"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours        bool          `envconfig:"E2E_COLOURS" default:"true"`
	DebounceWindow time.Duration `envconfig:"E2E_DEBOUNCE_WINDOW" default:"50ms"`
	StepTimeout    time.Duration `envconfig:"E2E_STEP_TIMEOUT" default:"5s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
