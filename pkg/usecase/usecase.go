package usecase

import (
	"time"

	"github.com/secmon-lab/babbell/pkg/domain/interfaces"
	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/secmon-lab/babbell/pkg/service/guard"
	slacksvc "github.com/secmon-lab/babbell/pkg/service/slack"
	"github.com/secmon-lab/babbell/pkg/service/worker"
	"github.com/secmon-lab/babbell/pkg/utils/ttlcache"
)

type UseCases struct {
	repo  interfaces.Repository
	slack slacksvc.Service

	menuProvider  interfaces.MenuProvider
	menuTTL       time.Duration
	menuCacheOpts []ttlcache.Option
	dedup         interfaces.WindowStore
	cooldown      interfaces.WindowStore
	cooldownTime  time.Duration
	broadcastOpts []BroadcastOption

	Subscription *SubscriptionUseCase
	Menu         *MenuCache
	Broadcast    *BroadcastUseCase
	Dispatcher   *Dispatcher
}

type Option func(*UseCases)

// WithMenuProvider enables the cafeteria menu for broadcasts that ask for it
func WithMenuProvider(provider interfaces.MenuProvider) Option {
	return func(uc *UseCases) {
		uc.menuProvider = provider
	}
}

func WithMenuTTL(ttl time.Duration, opts ...ttlcache.Option) Option {
	return func(uc *UseCases) {
		uc.menuTTL = ttl
		uc.menuCacheOpts = opts
	}
}

// WithDedupStore replaces the in-process dedup store
func WithDedupStore(store interfaces.WindowStore) Option {
	return func(uc *UseCases) {
		uc.dedup = store
	}
}

// WithCooldownStore replaces the in-process cooldown store
func WithCooldownStore(store interfaces.WindowStore) Option {
	return func(uc *UseCases) {
		uc.cooldown = store
	}
}

// WithCooldown sets the per user and button cooldown. Zero disables it.
func WithCooldown(d time.Duration) Option {
	return func(uc *UseCases) {
		uc.cooldownTime = d
	}
}

func WithBroadcastOptions(opts ...BroadcastOption) Option {
	return func(uc *UseCases) {
		uc.broadcastOpts = append(uc.broadcastOpts, opts...)
	}
}

func New(repo interfaces.Repository, slackService slacksvc.Service, buttons *model.ButtonSet, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:         repo,
		slack:        slackService,
		menuTTL:      DefaultMenuTTL,
		cooldownTime: DefaultCooldown,
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.dedup == nil {
		uc.dedup = guard.NewMemory()
	}
	if uc.cooldown == nil {
		uc.cooldown = guard.NewMemory()
	}

	uc.Subscription = NewSubscriptionUseCase(repo, slackService)
	uc.Menu = NewMenuCache(uc.menuProvider, uc.menuTTL, uc.menuCacheOpts...)
	uc.Broadcast = NewBroadcastUseCase(repo, slackService, uc.Subscription, uc.Menu, uc.broadcastOpts...)
	uc.Dispatcher = NewDispatcher(buttons, uc.dedup, uc.cooldown, uc.cooldownTime, uc.Subscription, uc.Broadcast, slackService)

	return uc
}

// Sweepers returns the in-process stores that need periodic cleanup
func (uc *UseCases) Sweepers() map[string]worker.Sweeper {
	out := make(map[string]worker.Sweeper)
	if s, ok := uc.dedup.(worker.Sweeper); ok {
		out["dedup"] = s
	}
	if s, ok := uc.cooldown.(worker.Sweeper); ok {
		out["cooldown"] = s
	}
	return out
}
