package usecase

import (
	"context"
	"time"

	"github.com/secmon-lab/babbell/pkg/domain/interfaces"
	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/secmon-lab/babbell/pkg/utils/logging"
	"github.com/secmon-lab/babbell/pkg/utils/ttlcache"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMenuTTL is how long a fetched menu is reused
	DefaultMenuTTL = 600 * time.Second

	menuCacheKey     = "today"
	menuFetchTimeout = 15 * time.Second
)

// MenuCache keeps today's menu in a single shared slot. It never fails:
// callers get nil when the menu is disabled or cannot be fetched.
type MenuCache struct {
	provider interfaces.MenuProvider
	ttl      time.Duration
	slot     *ttlcache.Cache[string, *model.Menu]
	fetch    singleflight.Group
}

// NewMenuCache wraps provider with a TTL cache. A nil provider disables the menu.
func NewMenuCache(provider interfaces.MenuProvider, ttl time.Duration, opts ...ttlcache.Option) *MenuCache {
	if ttl <= 0 {
		ttl = DefaultMenuTTL
	}
	return &MenuCache{
		provider: provider,
		ttl:      ttl,
		slot:     ttlcache.New[string, *model.Menu](opts...),
	}
}

// Enabled reports whether a provider is configured
func (c *MenuCache) Enabled() bool {
	return c != nil && c.provider != nil
}

// Get returns the cached menu, fetching it when the slot is empty or
// expired. The returned menu is shared and must not be modified.
func (c *MenuCache) Get(ctx context.Context) *model.Menu {
	if !c.Enabled() {
		return nil
	}

	if menu, ok := c.slot.Get(menuCacheKey); ok {
		return menu
	}

	v, _, _ := c.fetch.Do(menuCacheKey, func() (any, error) {
		// Another caller may have filled the slot while we waited
		if menu, ok := c.slot.Get(menuCacheKey); ok {
			return menu, nil
		}

		// The fetch is shared, so one caller's cancellation must not fail the others
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), menuFetchTimeout)
		defer cancel()

		menu, err := c.provider.Fetch(fetchCtx)
		if err != nil {
			logging.From(ctx).Warn("menu fetch failed, broadcasting without menu", "error", err.Error())
			return (*model.Menu)(nil), nil
		}
		if menu == nil {
			return (*model.Menu)(nil), nil
		}

		c.slot.Put(menuCacheKey, menu, c.ttl)
		return menu, nil
	})

	menu, _ := v.(*model.Menu)
	return menu
}
