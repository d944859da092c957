package guard

import (
	"context"
	"time"

	"github.com/secmon-lab/babbell/pkg/domain/interfaces"
	"github.com/secmon-lab/babbell/pkg/utils/ttlcache"
)

// Memory is an in-process WindowStore. Windows do not survive a restart and
// are not shared between replicas.
type Memory struct {
	cache *ttlcache.Cache[string, struct{}]
}

var _ interfaces.WindowStore = &Memory{}

type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	clock func() time.Time
}

// WithClock replaces time.Now, for tests
func WithClock(clock func() time.Time) MemoryOption {
	return func(o *memoryOptions) {
		o.clock = clock
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	var o memoryOptions
	for _, opt := range opts {
		opt(&o)
	}

	var cacheOpts []ttlcache.Option
	if o.clock != nil {
		cacheOpts = append(cacheOpts, ttlcache.WithClock(o.clock))
	}
	return &Memory{
		cache: ttlcache.New[string, struct{}](cacheOpts...),
	}
}

func (m *Memory) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, time.Duration, error) {
	ok, remaining := m.cache.PutIfAbsent(key, struct{}{}, ttl)
	return ok, remaining, nil
}

// Sweep drops expired windows and returns how many were removed
func (m *Memory) Sweep() int {
	return m.cache.Sweep()
}

// Len returns the number of stored windows, expired ones included
func (m *Memory) Len() int {
	return m.cache.Len()
}
