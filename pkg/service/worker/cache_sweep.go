package worker

import (
	"context"
	"sync"
	"time"

	"github.com/secmon-lab/babbell/pkg/utils/logging"
)

// Sweeper drops expired entries and returns how many were removed
type Sweeper interface {
	Sweep() int
}

// CacheSweepWorker periodically sweeps in-process TTL caches so that keys
// which are never read again do not accumulate.
type CacheSweepWorker struct {
	sweepers map[string]Sweeper
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewCacheSweepWorker creates a worker sweeping the given caches, keyed by a
// name used in logs
func NewCacheSweepWorker(sweepers map[string]Sweeper, interval time.Duration) *CacheSweepWorker {
	return &CacheSweepWorker{
		sweepers: sweepers,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop
func (w *CacheSweepWorker) Start(ctx context.Context) error {
	logging.Default().Info("Cache sweep worker starting",
		"interval", w.interval.String(),
		"caches", len(w.sweepers))

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *CacheSweepWorker) Stop() {
	w.stopOnce.Do(func() {
		logging.Default().Info("Cache sweep worker stopping")
		close(w.stopCh)
	})
	<-w.doneCh
}

func (w *CacheSweepWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep()

		case <-w.stopCh:
			logging.Default().Info("Cache sweep worker stopped")
			return

		case <-ctx.Done():
			logging.Default().Info("Cache sweep worker context cancelled")
			return
		}
	}
}

func (w *CacheSweepWorker) sweep() {
	for name, s := range w.sweepers {
		if n := s.Sweep(); n > 0 {
			logging.Default().Debug("Swept expired cache entries",
				"cache", name,
				"removed", n)
		}
	}
}
