// Package config provides optional run configuration for qparse.
package config

import "time"

// Config is the root configuration loaded from YAML. Every field has a flag
// override; the zero value plus defaults is a valid configuration.
type Config struct {
	// Captures lists capture files or glob patterns to scan when no
	// positional arguments are given.
	Captures []string `yaml:"captures,omitempty"`

	// Connection selects call semantics for the whole run: "modem" or
	// "direct_serial" (null modem cable, no dialing).
	Connection string `yaml:"connection,omitempty"`

	// Output is the report format: "text" or "json".
	Output string `yaml:"output,omitempty"`

	// Percentile is reported for every aggregate metric (default 95).
	Percentile int `yaml:"percentile,omitempty"`

	// Filter is an expression selecting which call records to report,
	// e.g. "connect_bps >= 26400 && download_success".
	Filter string `yaml:"filter,omitempty"`

	// Database is a SQLite file to append call records to.
	Database string `yaml:"database,omitempty"`

	// Webhook optionally receives the JSON report.
	Webhook *WebhookConfig `yaml:"webhook,omitempty"`
}

// WebhookTrigger determines when the report webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnFailures fires when the run recorded any connect or
	// download failure (default).
	WebhookTriggerOnFailures WebhookTrigger = "on_failures"
	// WebhookTriggerAlways fires after every scan.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending scan reports.
type WebhookConfig struct {
	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication. Supports ${VAR}
	// expansion from the environment.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_failures" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
