// Package config loads pagefix runtime settings and the file-backed bot
// credentials and replacement rules.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// ErrUnavailable marks missing or malformed local configuration. It is fatal
// at startup; during message handling a wrapped ErrUnavailable is a
// per-message failure.
var ErrUnavailable = errors.New("config: unavailable")

// Settings are the process-wide runtime options resolved from viper
// (flags, environment, optional config file, defaults).
type Settings struct {
	TokenFile      string
	UserIDFile     string
	RulesFile      string
	PollTimeout    time.Duration
	MaxConcurrency int
	OpsEnabled     bool
	OpsBind        string
}

// FromViper resolves Settings, applying floors for values that must be
// positive.
func FromViper() Settings {
	s := Settings{
		TokenFile:      viper.GetString("telegram.token_file"),
		UserIDFile:     viper.GetString("telegram.user_id_file"),
		RulesFile:      viper.GetString("rules.file"),
		PollTimeout:    viper.GetDuration("telegram.poll_timeout"),
		MaxConcurrency: viper.GetInt("telegram.max_concurrency"),
		OpsEnabled:     viper.GetBool("ops.enabled"),
		OpsBind:        viper.GetString("ops.bind"),
	}
	if s.TokenFile == "" {
		s.TokenFile = ".token.txt"
	}
	if s.UserIDFile == "" {
		s.UserIDFile = ".user_id.txt"
	}
	if s.RulesFile == "" {
		s.RulesFile = ".actions.yaml"
	}
	if s.PollTimeout <= 0 {
		s.PollTimeout = 60 * time.Second
	}
	if s.MaxConcurrency <= 0 {
		s.MaxConcurrency = 2
	}
	if s.OpsBind == "" {
		s.OpsBind = "127.0.0.1:8753"
	}
	return s
}
