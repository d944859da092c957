package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Dispatch holds CLI flags for click throttling and broadcast fan-out
type Dispatch struct {
	cooldown     time.Duration
	includeActor bool
	workers      int
	sendRate     float64
	sendTimeout  time.Duration
	queueSize    int
	queueWorkers int
}

func (x *Dispatch) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "cooldown",
			Usage:       "Minimum interval between clicks of the same button by the same user (0 disables)",
			Category:    "Dispatch",
			Value:       usecase.DefaultCooldown,
			Sources:     cli.EnvVars("BABBELL_COOLDOWN"),
			Destination: &x.cooldown,
		},
		&cli.BoolFlag{
			Name:        "include-actor",
			Usage:       "Mention the user who pressed the button in broadcasts",
			Category:    "Dispatch",
			Sources:     cli.EnvVars("BABBELL_INCLUDE_ACTOR"),
			Destination: &x.includeActor,
		},
		&cli.IntFlag{
			Name:        "broadcast-workers",
			Usage:       "Concurrent deliveries per broadcast",
			Category:    "Dispatch",
			Value:       usecase.DefaultSendConcurrency,
			Sources:     cli.EnvVars("BABBELL_BROADCAST_WORKERS"),
			Destination: &x.workers,
		},
		&cli.FloatFlag{
			Name:        "send-rate",
			Usage:       "Maximum messages per second across all broadcasts (0 disables pacing)",
			Category:    "Dispatch",
			Value:       usecase.DefaultSendRate,
			Sources:     cli.EnvVars("BABBELL_SEND_RATE"),
			Destination: &x.sendRate,
		},
		&cli.DurationFlag{
			Name:        "send-timeout",
			Usage:       "Timeout of one delivery",
			Category:    "Dispatch",
			Value:       usecase.DefaultSendTimeout,
			Sources:     cli.EnvVars("BABBELL_SEND_TIMEOUT"),
			Destination: &x.sendTimeout,
		},
		&cli.IntFlag{
			Name:        "broadcast-queue-size",
			Usage:       "Broadcasts waiting to run before new clicks are rejected",
			Category:    "Dispatch",
			Value:       usecase.DefaultQueueSize,
			Sources:     cli.EnvVars("BABBELL_BROADCAST_QUEUE_SIZE"),
			Destination: &x.queueSize,
		},
		&cli.IntFlag{
			Name:        "broadcast-queue-workers",
			Usage:       "Broadcasts running at the same time",
			Category:    "Dispatch",
			Value:       usecase.DefaultQueueWorkers,
			Sources:     cli.EnvVars("BABBELL_BROADCAST_QUEUE_WORKERS"),
			Destination: &x.queueWorkers,
		},
	}
}

func (x Dispatch) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("cooldown", x.cooldown.String()),
		slog.Bool("include_actor", x.includeActor),
		slog.Int("workers", x.workers),
		slog.Float64("send_rate", x.sendRate),
		slog.String("send_timeout", x.sendTimeout.String()),
		slog.Int("queue_size", x.queueSize),
		slog.Int("queue_workers", x.queueWorkers),
	)
}

// Validate checks the numeric settings
func (x *Dispatch) Validate() error {
	if x.cooldown < 0 {
		return goerr.Wrap(ErrInvalidConfig, "cooldown must not be negative", goerr.V("cooldown", x.cooldown))
	}
	if x.workers < 1 {
		return goerr.Wrap(ErrInvalidConfig, "broadcast-workers must be at least 1", goerr.V("workers", x.workers))
	}
	if x.sendRate < 0 {
		return goerr.Wrap(ErrInvalidConfig, "send-rate must not be negative", goerr.V("send_rate", x.sendRate))
	}
	if x.sendTimeout <= 0 {
		return goerr.Wrap(ErrInvalidConfig, "send-timeout must be positive", goerr.V("send_timeout", x.sendTimeout))
	}
	if x.queueSize < 1 || x.queueWorkers < 1 {
		return goerr.Wrap(ErrInvalidConfig, "broadcast queue size and workers must be at least 1",
			goerr.V("queue_size", x.queueSize),
			goerr.V("queue_workers", x.queueWorkers))
	}
	return nil
}

// Options converts the settings into use case options
func (x *Dispatch) Options() ([]usecase.Option, error) {
	if err := x.Validate(); err != nil {
		return nil, err
	}

	return []usecase.Option{
		usecase.WithCooldown(x.cooldown),
		usecase.WithBroadcastOptions(
			usecase.WithIncludeActor(x.includeActor),
			usecase.WithSendConcurrency(x.workers),
			usecase.WithSendRate(x.sendRate),
			usecase.WithSendTimeout(x.sendTimeout),
			usecase.WithQueue(x.queueSize, x.queueWorkers),
		),
	}, nil
}
