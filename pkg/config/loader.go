package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Validator is implemented by config structs that check cross-field rules
// after parsing.
type Validator interface {
	Validate() error
}

// Load parses environment variables into cfg using `env` and `envDefault`
// tags, then runs cfg.Validate when cfg implements Validator.
func Load(cfg any) error {
	return LoadWithEnv(cfg, nil)
}

// LoadWithEnv is Load with an explicit environment. A nil map reads the
// process environment.
func LoadWithEnv(cfg any, environment map[string]string) error {
	opts := env.Options{}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	return nil
}
