package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvOverrides are the settings that may be supplied through the
// environment (or a .env file) on top of the YAML file.
type EnvOverrides struct {
	Listen      string `env:"ACADCAL_LISTEN"`
	Timezone    string `env:"ACADCAL_TIMEZONE"`
	DataFile    string `env:"ACADCAL_DATA_FILE"`
	RefreshCron string `env:"ACADCAL_REFRESH"`
	CacheDir    string `env:"ACADCAL_CACHE_DIR"`
	LogLevel    string `env:"ACADCAL_LOG_LEVEL"`
}

// ParseEnv reads EnvOverrides. A nil environ means the process
// environment.
func ParseEnv(environ map[string]string) (EnvOverrides, error) {
	o, err := env.ParseAsWithOptions[EnvOverrides](env.Options{Environment: environ})
	if err != nil {
		return EnvOverrides{}, fmt.Errorf("parse env: %w", err)
	}
	return o, nil
}

// Apply copies every non-empty override onto c.
func (o EnvOverrides) Apply(c *Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Listen, o.Listen)
	set(&c.Timezone, o.Timezone)
	set(&c.DataFile, o.DataFile)
	set(&c.RefreshCron, o.RefreshCron)
	set(&c.CacheDir, o.CacheDir)
}
