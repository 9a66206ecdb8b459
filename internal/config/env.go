package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Env holds process-level settings read from environment variables. Game
// rules live in the JSON config file; the environment only says where to
// listen, where the database sits and where to find that file.
type Env struct {
	Address       string        `env:"CLAWCOMBAT_ADDR"`
	DBPath        string        `env:"CLAWCOMBAT_DB"             envDefault:"clawcombat.db"`
	ConfigPath    string        `env:"CLAWCOMBAT_CONFIG"         envDefault:"clawcombat_config.json"`
	Debug         bool          `env:"CLAWCOMBAT_DEBUG"`
	ShutdownGrace time.Duration `env:"CLAWCOMBAT_SHUTDOWN_GRACE" envDefault:"10s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
