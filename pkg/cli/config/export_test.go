package config

import "time"

// NewSlackForTest creates a Slack config for testing purposes
func NewSlackForTest(botToken, signingSecret, appToken string) *Slack {
	return &Slack{
		botToken:      botToken,
		signingSecret: signingSecret,
		appToken:      appToken,
	}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, sqlitePath string) *Repository {
	return &Repository{
		backend:    backend,
		sqlitePath: sqlitePath,
	}
}

// NewGuardForTest creates a Guard config for testing purposes
func NewGuardForTest(backend, redisAddr string) *Guard {
	return &Guard{
		backend:   backend,
		redisAddr: redisAddr,
		namespace: DefaultGuardNamespace,
	}
}

// NewDispatchForTest creates a Dispatch config for testing purposes
func NewDispatchForTest(cooldown time.Duration, workers int, rate float64) *Dispatch {
	return &Dispatch{
		cooldown:     cooldown,
		workers:      workers,
		sendRate:     rate,
		sendTimeout:  10 * time.Second,
		queueSize:    64,
		queueWorkers: 1,
	}
}

// NewMenuForTest creates a Menu config for testing purposes
func NewMenuForTest(enabled bool, timezone string) *Menu {
	return &Menu{
		enabled:  enabled,
		url:      "http://localhost/menu",
		ttl:      time.Minute,
		timezone: timezone,
	}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

// NewButtonsForTest creates a Buttons config for testing purposes
func NewButtonsForTest(path string) *Buttons {
	return &Buttons{path: path}
}
