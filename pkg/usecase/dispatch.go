package usecase

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/domain/interfaces"
	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/secmon-lab/babbell/pkg/domain/types"
	slacksvc "github.com/secmon-lab/babbell/pkg/service/slack"
	"github.com/secmon-lab/babbell/pkg/utils/logging"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

const (
	// DedupWindow suppresses redeliveries of the same event. It is not configurable.
	DedupWindow = 5 * time.Minute

	// DefaultCooldown is the minimum spacing between clicks of the same button by the same user
	DefaultCooldown = 60 * time.Second
)

// Dispatcher routes inbound Slack events after deduplication and cooldown.
// Dedup and cooldown slots are claimed on receipt, before any handler runs,
// so a handler failure still counts as seen and still throttles.
type Dispatcher struct {
	buttons      *model.ButtonSet
	dedup        interfaces.WindowStore
	cooldown     interfaces.WindowStore
	cooldownTime time.Duration
	subscription *SubscriptionUseCase
	broadcast    *BroadcastUseCase
	notifier     *notifier
}

// NewDispatcher creates a new Dispatcher instance
func NewDispatcher(
	buttons *model.ButtonSet,
	dedup, cooldown interfaces.WindowStore,
	cooldownTime time.Duration,
	subscription *SubscriptionUseCase,
	broadcast *BroadcastUseCase,
	slackService slacksvc.Service,
) *Dispatcher {
	return &Dispatcher{
		buttons:      buttons,
		dedup:        dedup,
		cooldown:     cooldown,
		cooldownTime: cooldownTime,
		subscription: subscription,
		broadcast:    broadcast,
		notifier:     &notifier{slack: slackService},
	}
}

// HandleSlackEvent processes Slack Events API callbacks. Only message events
// are handled; everything else is ignored.
func (d *Dispatcher) HandleSlackEvent(ctx context.Context, event *slackevents.EventsAPIEvent) error {
	if event == nil {
		return goerr.New("event is nil")
	}

	ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		logging.From(ctx).Debug("ignored slack event", "type", event.Type, "innerType", event.InnerEvent.Type)
		return nil
	}

	var eventID string
	if cb, ok := event.Data.(*slackevents.EventsAPICallbackEvent); ok {
		eventID = cb.EventID
	}

	return d.HandleMessage(ctx, newInboundMessage(eventID, ev))
}

func newInboundMessage(eventID string, ev *slackevents.MessageEvent) *model.InboundMessage {
	return &model.InboundMessage{
		EventID:     eventID,
		UserID:      types.UserID(ev.User),
		ChannelID:   types.ChannelID(ev.Channel),
		ChannelType: ev.ChannelType,
		BotID:       ev.BotID,
		SubType:     ev.SubType,
		Text:        ev.Text,
		TS:          ev.TimeStamp,
	}
}

// HandleInteraction processes block_actions payloads. Every action owned by
// the bot is dispatched; errors are joined.
func (d *Dispatcher) HandleInteraction(ctx context.Context, callback *slack.InteractionCallback) error {
	if callback == nil {
		return goerr.New("interaction callback is nil")
	}
	if callback.Type != slack.InteractionTypeBlockActions {
		return nil
	}

	var errs []error
	for _, action := range callback.ActionCallback.BlockActions {
		if _, ok := model.ParseActionID(action.ActionID); !ok {
			continue
		}
		if err := d.HandleAction(ctx, newInboundAction(callback, action)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newInboundAction(callback *slack.InteractionCallback, action *slack.BlockAction) *model.InboundAction {
	channelID := callback.Channel.ID
	if channelID == "" {
		channelID = callback.Container.ChannelID
	}
	messageTS := callback.Container.MessageTs
	if messageTS == "" {
		messageTS = callback.Message.Timestamp
	}
	return &model.InboundAction{
		UserID:    types.UserID(callback.User.ID),
		ChannelID: types.ChannelID(channelID),
		ActionID:  action.ActionID,
		Value:     action.Value,
		ActionTS:  action.ActionTs,
		MessageTS: messageTS,
	}
}

// HandleMessage subscribes the sender of a direct message and replies with
// the button panel.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg *model.InboundMessage) error {
	if msg == nil || !msg.IsDirectFromUser() {
		return nil
	}

	logger := logging.From(ctx).With("user_id", msg.UserID, "channel_id", msg.ChannelID)
	ctx = logging.With(ctx, logger)

	fresh, err := d.claim(ctx, d.dedup, msg.DedupKey(), DedupWindow)
	if err != nil {
		return goerr.Wrap(err, "failed to check duplicate message")
	}
	if !fresh {
		logger.Debug("duplicate message ignored", "dedup_key", msg.DedupKey())
		return nil
	}

	_, wasSubscribed, err := d.subscription.HandleContact(ctx, msg)
	if err != nil {
		return goerr.Wrap(err, "failed to handle direct message")
	}

	blocks, text := buildPanelBlocks(d.buttons, !wasSubscribed)
	d.notifier.notify(ctx, msg.UserID, msg.ChannelID, blocks, text)
	return nil
}

// HandleAction handles one button click
func (d *Dispatcher) HandleAction(ctx context.Context, act *model.InboundAction) error {
	if act == nil {
		return nil
	}
	parsed, ok := model.ParseActionID(act.ActionID)
	if !ok {
		return nil
	}
	value := act.Value
	if value == "" {
		value = parsed
	}

	logger := logging.From(ctx).With("user_id", act.UserID, "action", value)
	ctx = logging.With(ctx, logger)

	fresh, err := d.claim(ctx, d.dedup, act.DedupKey(), DedupWindow)
	if err != nil {
		return goerr.Wrap(err, "failed to check duplicate action")
	}
	if !fresh {
		logger.Debug("duplicate action ignored", "dedup_key", act.DedupKey())
		return nil
	}

	button, ok := d.buttons.Lookup(value)
	if !ok {
		logger.Warn("unknown button clicked", "action_id", act.ActionID)
		d.notifier.notify(ctx, act.UserID, act.ChannelID, nil, unknownButtonText)
		return nil
	}

	keyed := *act
	keyed.Value = button.Value
	allowed, err := d.claimWithRemaining(ctx, d.cooldown, keyed.CooldownKey(), d.cooldownTime)
	if err != nil {
		return goerr.Wrap(err, "failed to check cooldown")
	}
	if allowed > 0 {
		seconds := int(math.Ceil(allowed.Seconds()))
		logger.Info("click rejected by cooldown", "remaining_seconds", seconds)
		d.notifier.notify(ctx, act.UserID, act.ChannelID, nil, buildCooldownText(seconds))
		return nil
	}

	switch {
	case button.IsOptOut:
		if err := d.subscription.Unsubscribe(ctx, act.UserID); err != nil {
			return goerr.Wrap(err, "failed to handle opt-out")
		}
		d.notifier.notify(ctx, act.UserID, act.ChannelID, nil, optOutDoneText)

	case button.IsBroadcast:
		req := BroadcastRequest{
			Button:       button,
			Actor:        act.UserID,
			ReplyChannel: act.ChannelID,
		}
		if err := d.broadcast.Submit(ctx, req); err != nil {
			d.notifier.notify(ctx, act.UserID, act.ChannelID, nil, buildBroadcastFailedText(button))
			return goerr.Wrap(err, "failed to start broadcast")
		}

	default:
		logger.Warn("button has no handler")
	}

	return nil
}

// claim reports whether key was free and is now held for ttl
func (d *Dispatcher) claim(ctx context.Context, store interfaces.WindowStore, key string, ttl time.Duration) (bool, error) {
	ok, _, err := store.Acquire(ctx, key, ttl)
	if err != nil {
		return false, goerr.Wrap(err, "failed to acquire window", goerr.V("key", key))
	}
	return ok, nil
}

// claimWithRemaining returns zero when key was claimed, otherwise the time
// left on the current holder's window
func (d *Dispatcher) claimWithRemaining(ctx context.Context, store interfaces.WindowStore, key string, ttl time.Duration) (time.Duration, error) {
	ok, remaining, err := store.Acquire(ctx, key, ttl)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to acquire window", goerr.V("key", key))
	}
	if ok {
		return 0, nil
	}
	// A held window always reports some time left
	return max(remaining, time.Nanosecond), nil
}
