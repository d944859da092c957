package usecase

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/domain/interfaces"
	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/secmon-lab/babbell/pkg/domain/types"
	slacksvc "github.com/secmon-lab/babbell/pkg/service/slack"
	"github.com/secmon-lab/babbell/pkg/utils/errutil"
	"github.com/secmon-lab/babbell/pkg/utils/logging"
	"github.com/slack-go/slack"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultSendConcurrency = 4
	DefaultSendRate        = 10.0
	DefaultSendTimeout     = 10 * time.Second
	DefaultQueueSize       = 64
	DefaultQueueWorkers    = 1
)

// BroadcastRequest asks for one broadcast
type BroadcastRequest struct {
	Button model.Button
	Actor  types.UserID
	// ReplyChannel receives the summary. Empty opens a DM with the actor.
	ReplyChannel types.ChannelID
}

type broadcastJob struct {
	request BroadcastRequest
	logger  *slog.Logger
}

// BroadcastUseCase fans a rendered message out to every subscriber and
// records the outcome. Duplicate clicks are filtered before reaching it; it
// runs every request it is given to completion.
type BroadcastUseCase struct {
	repo         interfaces.Repository
	slack        slacksvc.Service
	subscription *SubscriptionUseCase
	menu         *MenuCache
	notifier     *notifier

	includeActor bool
	concurrency  int
	limiter      *rate.Limiter
	sendTimeout  time.Duration
	clock        func() time.Time

	queue        chan broadcastJob
	queueWorkers int

	mu      sync.RWMutex
	running bool
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

type BroadcastOption func(*BroadcastUseCase)

// WithIncludeActor mentions the clicking user in the broadcast
func WithIncludeActor(include bool) BroadcastOption {
	return func(uc *BroadcastUseCase) {
		uc.includeActor = include
	}
}

// WithSendConcurrency bounds the number of in-flight sends of one broadcast
func WithSendConcurrency(n int) BroadcastOption {
	return func(uc *BroadcastUseCase) {
		if n > 0 {
			uc.concurrency = n
		}
	}
}

// WithSendRate paces sends across all broadcasts. A non-positive rate disables pacing.
func WithSendRate(perSecond float64) BroadcastOption {
	return func(uc *BroadcastUseCase) {
		if perSecond <= 0 {
			uc.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := max(int(perSecond), 1)
		uc.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithSendTimeout bounds each channel resolution plus send
func WithSendTimeout(d time.Duration) BroadcastOption {
	return func(uc *BroadcastUseCase) {
		if d > 0 {
			uc.sendTimeout = d
		}
	}
}

// WithQueue sets the capacity of the submission queue and how many
// broadcasts run at the same time
func WithQueue(size, workers int) BroadcastOption {
	return func(uc *BroadcastUseCase) {
		if size > 0 {
			uc.queue = make(chan broadcastJob, size)
		}
		if workers > 0 {
			uc.queueWorkers = workers
		}
	}
}

// WithBroadcastClock replaces time.Now, for tests
func WithBroadcastClock(clock func() time.Time) BroadcastOption {
	return func(uc *BroadcastUseCase) {
		uc.clock = clock
	}
}

// NewBroadcastUseCase creates a new BroadcastUseCase instance
func NewBroadcastUseCase(repo interfaces.Repository, slackService slacksvc.Service, subscription *SubscriptionUseCase, menu *MenuCache, opts ...BroadcastOption) *BroadcastUseCase {
	uc := &BroadcastUseCase{
		repo:         repo,
		slack:        slackService,
		subscription: subscription,
		menu:         menu,
		notifier:     &notifier{slack: slackService},
		concurrency:  DefaultSendConcurrency,
		limiter:      rate.NewLimiter(rate.Limit(DefaultSendRate), int(DefaultSendRate)),
		sendTimeout:  DefaultSendTimeout,
		clock:        time.Now,
		queue:        make(chan broadcastJob, DefaultQueueSize),
		queueWorkers: DefaultQueueWorkers,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Broadcast runs one broadcast to completion and returns its persisted
// record. Failed deliveries are counted, not returned; only a storage
// failure fails the broadcast.
func (uc *BroadcastUseCase) Broadcast(ctx context.Context, button model.Button, actor types.UserID) (*model.BroadcastRecord, error) {
	if !button.IsBroadcast {
		return nil, goerr.Wrap(ErrNotBroadcastButton, "cannot broadcast", goerr.V("button", button.Value))
	}

	record := model.NewBroadcastRecord(button.Value, actor, uc.clock())
	logger := logging.From(ctx).With("broadcast_id", record.ID, "action", button.Value)
	ctx = logging.With(ctx, logger)

	var menu *model.Menu
	if button.IncludeMenu {
		menu = uc.menu.Get(ctx)
	}
	blocks, text := buildBroadcastMessage(button, actor, uc.includeActor, menu)

	subscribers, err := uc.repo.Subscriber().ListSubscribed(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list subscribers", goerr.V("broadcast_id", record.ID))
	}

	logger.Info("broadcast started",
		"actor", actor,
		"targets", len(subscribers),
		"with_menu", !menu.IsEmpty(),
	)

	var success, failure atomic.Int64
	var g errgroup.Group
	g.SetLimit(uc.concurrency)
	for _, sub := range subscribers {
		g.Go(func() error {
			if uc.deliver(ctx, sub, blocks, text) {
				success.Add(1)
			} else {
				failure.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	record.Complete(int(success.Load()), int(failure.Load()), uc.clock())
	if err := uc.repo.SendLog().Put(ctx, record); err != nil {
		return nil, goerr.Wrap(err, "failed to record broadcast",
			goerr.V("broadcast_id", record.ID),
			goerr.V("success", record.SuccessCount),
			goerr.V("failure", record.FailureCount))
	}

	logger.Info("broadcast completed",
		"targets", record.TargetCount,
		"success", record.SuccessCount,
		"failure", record.FailureCount,
		"duration", record.CompletedAt.Sub(record.StartedAt).String(),
	)
	return record, nil
}

// deliver sends the message to one subscriber and reports success. It
// never panics out of the fan-out.
func (uc *BroadcastUseCase) deliver(ctx context.Context, sub *model.Subscriber, blocks []slack.Block, text string) (ok bool) {
	logger := logging.From(ctx).With("user_id", sub.UserID)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while delivering broadcast",
				"panic", r,
				"stack", string(debug.Stack()))
			ok = false
		}
	}()

	if err := uc.limiter.Wait(ctx); err != nil {
		logger.Warn("delivery skipped", "error", err.Error())
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, uc.sendTimeout)
	defer cancel()

	channelID, err := uc.subscription.ResolveDirectChannel(sendCtx, sub)
	if err != nil {
		logger.Warn("delivery failed", "stage", "resolve_channel", "error", err.Error())
		return false
	}

	if _, err := uc.slack.PostMessage(sendCtx, channelID, blocks, text); err != nil {
		logger.Warn("delivery failed", "stage", "post_message", "channel_id", channelID, "error", err.Error())
		return false
	}
	return true
}

// Start launches the workers that run submitted broadcasts
func (uc *BroadcastUseCase) Start(ctx context.Context) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.stopped {
		return goerr.Wrap(ErrBroadcastStopped, "cannot restart broadcast workers")
	}
	if uc.running {
		return nil
	}
	uc.running = true
	uc.stopCh = make(chan struct{})

	for i := range uc.queueWorkers {
		uc.wg.Add(1)
		go uc.work(ctx, i)
	}

	logging.Default().Info("broadcast workers started",
		"workers", uc.queueWorkers,
		"queue_size", cap(uc.queue),
		"send_concurrency", uc.concurrency)
	return nil
}

// Stop rejects new submissions, lets queued broadcasts finish and waits for
// the workers until ctx is done.
func (uc *BroadcastUseCase) Stop(ctx context.Context) error {
	uc.mu.Lock()
	if !uc.running || uc.stopped {
		uc.stopped = true
		uc.mu.Unlock()
		return nil
	}
	uc.stopped = true
	close(uc.stopCh)
	uc.mu.Unlock()

	done := make(chan struct{})
	go func() {
		uc.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Default().Info("broadcast workers stopped")
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "broadcast workers did not stop in time")
	}
}

// Submit queues a broadcast and returns without waiting for it. The actor
// receives a summary DM when it completes.
func (uc *BroadcastUseCase) Submit(ctx context.Context, req BroadcastRequest) error {
	if !req.Button.IsBroadcast {
		return goerr.Wrap(ErrNotBroadcastButton, "cannot submit broadcast", goerr.V("button", req.Button.Value))
	}

	uc.mu.RLock()
	defer uc.mu.RUnlock()

	if !uc.running || uc.stopped {
		return goerr.Wrap(ErrBroadcastStopped, "broadcast workers are not running", goerr.V("button", req.Button.Value))
	}

	select {
	case uc.queue <- broadcastJob{request: req, logger: logging.From(ctx)}:
		logging.From(ctx).Info("broadcast queued", "action", req.Button.Value, "actor", req.Actor)
		return nil
	default:
		return goerr.Wrap(ErrBroadcastQueueFull, "cannot submit broadcast",
			goerr.V("button", req.Button.Value),
			goerr.V("queue_size", cap(uc.queue)))
	}
}

func (uc *BroadcastUseCase) work(ctx context.Context, idx int) {
	defer uc.wg.Done()

	for {
		select {
		case job := <-uc.queue:
			uc.run(job)
		case <-uc.stopCh:
			// drain what was accepted before Stop
			for {
				select {
				case job := <-uc.queue:
					uc.run(job)
				default:
					return
				}
			}
		case <-ctx.Done():
			logging.Default().Warn("broadcast worker context cancelled", "worker", idx, "pending", len(uc.queue))
			return
		}
	}
}

// run executes a submitted broadcast detached from the request that queued it
func (uc *BroadcastUseCase) run(job broadcastJob) {
	ctx := logging.With(context.Background(), job.logger)
	req := job.request

	defer func() {
		if r := recover(); r != nil {
			errutil.Handle(ctx, goerr.New("panic in broadcast worker",
				goerr.V("panic", r),
				goerr.V("stack", string(debug.Stack()))), "broadcast aborted")
		}
	}()

	record, err := uc.Broadcast(ctx, req.Button, req.Actor)
	if err != nil {
		errutil.Handle(ctx, err, "broadcast failed")
		uc.notifier.notify(ctx, req.Actor, req.ReplyChannel, nil, buildBroadcastFailedText(req.Button))
		return
	}

	uc.notifier.notify(ctx, req.Actor, req.ReplyChannel, nil, buildSummaryText(req.Button, record))
}
