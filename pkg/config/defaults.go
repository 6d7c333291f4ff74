package config

import (
	"os"
	"strings"
	"time"
)

// Default values for configuration.
const (
	DefaultPercentile     = 95
	DefaultWebhookTimeout = 10 * time.Second

	OutputText = "text"
	OutputJSON = "json"

	ConnectionModem        = "modem"
	ConnectionDirectSerial = "direct_serial"
)

// Environment variable names.
const (
	EnvCaptures = "QPARSE_CAPTURES"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Connection: ConnectionModem,
		Output:     OutputText,
		Percentile: DefaultPercentile,
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	// Override capture sources from environment if set
	if captures := os.Getenv(EnvCaptures); captures != "" {
		c.Captures = strings.Split(captures, string(os.PathListSeparator))
	}
}
