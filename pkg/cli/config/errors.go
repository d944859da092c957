package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound    = goerr.New("configuration file not found")
	ErrInvalidConfig     = goerr.New("invalid configuration")
	ErrMissingSlackToken = goerr.New("Slack bot token is required")
	ErrNoSlackTransport  = goerr.New("either a signing secret or an app token is required")
	ErrInvalidBackend    = goerr.New("invalid backend")
	ErrDuplicateButton   = goerr.New("duplicate button value")
	ErrInvalidTimezone   = goerr.New("invalid timezone")
)

// Context keys for error values
const (
	ConfigPathKey  = "config_path"
	ButtonValueKey = "button_value"
	ButtonIndexKey = "button_index"
	BackendKey     = "backend"
)
