package config

import (
	"github.com/caarlos0/env/v11"
)

// Env holds settings read from the environment. They become the defaults of
// the matching command line flags.
type Env struct {
	ConfigPath string `env:"SECRETSPROVIDER_CONFIG" envDefault:"secretsprovider.yaml"`
	Debug      bool   `env:"SECRETSPROVIDER_DEBUG"`
	LogFormat  string `env:"SECRETSPROVIDER_LOG_FORMAT" envDefault:"console"`
	// NoColor follows no-color.org: any non-empty value disables color.
	NoColor string `env:"NO_COLOR"`
}

// GetEnv parses the environment.
func GetEnv() (*Env, error) {
	cfg := Env{}
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ColorDisabled reports whether NO_COLOR is set.
func (e *Env) ColorDisabled() bool {
	return e.NoColor != ""
}
