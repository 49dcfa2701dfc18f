package authclient

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ConfigFromEnv reads Config from STRATAAUTH_* environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("error getting env configs: %w", err)
	}
	return cfg, nil
}
