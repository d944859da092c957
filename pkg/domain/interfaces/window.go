package interfaces

import (
	"context"
	"time"
)

// WindowStore claims keys for a fixed window. It backs event deduplication and
// per-user cooldowns.
type WindowStore interface {
	// Acquire claims key for ttl. When the key is already held it returns false
	// and the time left until the holder's window ends.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, time.Duration, error)
}
