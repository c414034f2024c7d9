// Package config loads pollbot's runtime configuration from the
// environment.
//
// Credentials are required and validated eagerly: a missing variable is a
// startup failure that names every absent key, not a deferred 401 from the
// platform. Everything else has a documented fallback.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment keys.
const (
	EnvAPIKey       = "TWITTER_API_KEY"
	EnvAPISecret    = "TWITTER_API_SECRET"
	EnvAccessToken  = "TWITTER_ACCESS_TOKEN"
	EnvAccessSecret = "TWITTER_ACCESS_SECRET"

	EnvDurationHours = "POLL_DURATION_HOURS"
	EnvLogLevel      = "LOG_LEVEL"
	EnvLogFile       = "LOG_FILE"
	EnvPollsFile     = "POLLS_FILE"
	EnvHistoryDB     = "HISTORY_DB"
)

const (
	DefaultDurationHours = 24.0
	DefaultPollsFile     = "./polls.yaml"
)

// Credentials holds the four OAuth1 user-context secrets. They are opaque
// to pollbot and never logged.
type Credentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

type Config struct {
	Credentials Credentials

	// DefaultDurationHours applies when a poll definition omits its own
	// duration. Always positive.
	DefaultDurationHours float64

	LogLevel  string
	LogFile   string // empty disables the JSON file sink
	PollsFile string
	HistoryDB string // empty disables the sqlite history store
}

// FromEnv reads the full configuration from the process environment.
func FromEnv() (*Config, error) {
	creds := Credentials{
		APIKey:       strings.TrimSpace(os.Getenv(EnvAPIKey)),
		APISecret:    strings.TrimSpace(os.Getenv(EnvAPISecret)),
		AccessToken:  strings.TrimSpace(os.Getenv(EnvAccessToken)),
		AccessSecret: strings.TrimSpace(os.Getenv(EnvAccessSecret)),
	}
	if err := creds.validate(); err != nil {
		return nil, err
	}

	cfg := &Config{
		Credentials:          creds,
		DefaultDurationHours: DefaultDurationHours,
		LogLevel:             envOr(EnvLogLevel, "info"),
		LogFile:              strings.TrimSpace(os.Getenv(EnvLogFile)),
		PollsFile:            envOr(EnvPollsFile, DefaultPollsFile),
		HistoryDB:            strings.TrimSpace(os.Getenv(EnvHistoryDB)),
	}

	if raw := strings.TrimSpace(os.Getenv(EnvDurationHours)); raw != "" {
		h, err := strconv.ParseFloat(raw, 64)
		if err != nil || h <= 0 {
			return nil, fmt.Errorf("config: %s must be a positive number of hours, got %q", EnvDurationHours, raw)
		}
		cfg.DefaultDurationHours = h
	}

	return cfg, nil
}

// validate checks that no credential is empty and enumerates the missing
// keys so a bad deploy is diagnosable from a single error line.
func (c Credentials) validate() error {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, EnvAPIKey)
	}
	if c.APISecret == "" {
		missing = append(missing, EnvAPISecret)
	}
	if c.AccessToken == "" {
		missing = append(missing, EnvAccessToken)
	}
	if c.AccessSecret == "" {
		missing = append(missing, EnvAccessSecret)
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
