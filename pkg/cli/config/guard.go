package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
	"github.com/secmon-lab/babbell/pkg/domain/interfaces"
	"github.com/secmon-lab/babbell/pkg/service/guard"
	"github.com/secmon-lab/babbell/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	BackendRedis = "redis"

	DefaultGuardNamespace = "babbell"
)

// Guard holds CLI flags for the dedup and cooldown window store
type Guard struct {
	backend       string
	redisAddr     string
	redisPassword string
	redisDB       int
	namespace     string
}

// Guards are the window stores handed to the dispatcher
type Guards struct {
	Dedup    interfaces.WindowStore
	Cooldown interfaces.WindowStore
	close    func() error
}

// Close releases the backing connection, if any
func (g *Guards) Close() error {
	if g == nil || g.close == nil {
		return nil
	}
	return g.close()
}

func (x *Guard) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "guard-backend",
			Usage:       "Dedup and cooldown store (memory or redis). Use redis when running several replicas",
			Category:    "Guard",
			Value:       BackendMemory,
			Sources:     cli.EnvVars("BABBELL_GUARD_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "redis-addr",
			Usage:       "Redis address (host:port)",
			Category:    "Guard",
			Sources:     cli.EnvVars("BABBELL_REDIS_ADDR"),
			Destination: &x.redisAddr,
		},
		&cli.StringFlag{
			Name:        "redis-password",
			Usage:       "Redis password",
			Category:    "Guard",
			Sources:     cli.EnvVars("BABBELL_REDIS_PASSWORD"),
			Destination: &x.redisPassword,
		},
		&cli.IntFlag{
			Name:        "redis-db",
			Usage:       "Redis database number",
			Category:    "Guard",
			Sources:     cli.EnvVars("BABBELL_REDIS_DB"),
			Destination: &x.redisDB,
		},
		&cli.StringFlag{
			Name:        "guard-namespace",
			Usage:       "Key prefix in Redis",
			Category:    "Guard",
			Value:       DefaultGuardNamespace,
			Sources:     cli.EnvVars("BABBELL_GUARD_NAMESPACE"),
			Destination: &x.namespace,
		},
	}
}

func (x Guard) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", x.backend),
		slog.String("redis_addr", x.redisAddr),
		slog.Int("redis_password.len", len(x.redisPassword)),
		slog.Int("redis_db", x.redisDB),
		slog.String("namespace", x.namespace),
	)
}

// Configure builds the dedup and cooldown stores
func (x *Guard) Configure(ctx context.Context) (*Guards, error) {
	switch x.backend {
	case BackendMemory, "":
		return &Guards{
			Dedup:    guard.NewMemory(),
			Cooldown: guard.NewMemory(),
		}, nil

	case BackendRedis:
		if x.redisAddr == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "redis-addr is required when using redis guard backend")
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{x.redisAddr},
			Password: x.redisPassword,
			DB:       x.redisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, goerr.Wrap(err, "failed to connect to redis", goerr.V("addr", x.redisAddr))
		}

		logging.Default().Info("Using Redis guard store", "addr", x.redisAddr, "namespace", x.namespace)
		return &Guards{
			Dedup:    guard.NewRedis(client, x.namespace+":dedup"),
			Cooldown: guard.NewRedis(client, x.namespace+":cooldown"),
			close:    client.Close,
		}, nil

	default:
		return nil, goerr.Wrap(ErrInvalidBackend, "invalid guard backend", goerr.V(BackendKey, x.backend))
	}
}
