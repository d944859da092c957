package guard

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
	"github.com/secmon-lab/babbell/pkg/domain/interfaces"
)

const (
	keySeparator     = ":"
	placeholderValue = "1"

	// PTTL reply for a key that does not exist
	pttlKeyMissing time.Duration = -2
)

// Redis is a WindowStore shared by every replica pointing at the same
// server. A window is a key set with SETNX and a TTL.
type Redis struct {
	client    redis.UniversalClient
	namespace string
}

var _ interfaces.WindowStore = &Redis{}

func NewRedis(client redis.UniversalClient, namespace string) *Redis {
	return &Redis{
		client:    client,
		namespace: namespace,
	}
}

func (r *Redis) key(key string) string {
	if r.namespace == "" {
		return key
	}
	return r.namespace + keySeparator + key
}

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, time.Duration, error) {
	k := r.key(key)

	if ttl <= 0 {
		// A non-positive window never blocks
		return true, 0, nil
	}

	// A key that expires between SETNX and PTTL gets one more SETNX
	for attempt := 0; ; attempt++ {
		ok, err := r.client.SetNX(ctx, k, placeholderValue, ttl).Result()
		if err != nil {
			return false, 0, goerr.Wrap(err, "failed to set window key", goerr.V("key", k))
		}
		if ok {
			return true, 0, nil
		}

		remaining, err := r.client.PTTL(ctx, k).Result()
		if err != nil {
			return false, 0, goerr.Wrap(err, "failed to get window ttl", goerr.V("key", k))
		}

		switch {
		case remaining == pttlKeyMissing && attempt == 0:
			continue
		case remaining < 0:
			// No TTL on the key, or it vanished twice. Report the full window.
			remaining = ttl
		}
		return false, remaining, nil
	}
}
