package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/domain/interfaces"
	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/secmon-lab/babbell/pkg/domain/types"
	slacksvc "github.com/secmon-lab/babbell/pkg/service/slack"
	"github.com/secmon-lab/babbell/pkg/utils/errutil"
	"github.com/secmon-lab/babbell/pkg/utils/logging"
	"golang.org/x/sync/singleflight"
)

// SubscriptionUseCase manages the opt-in registry
type SubscriptionUseCase struct {
	repo  interfaces.Repository
	slack slacksvc.Service
	open  singleflight.Group
}

// NewSubscriptionUseCase creates a new SubscriptionUseCase instance
func NewSubscriptionUseCase(repo interfaces.Repository, slackService slacksvc.Service) *SubscriptionUseCase {
	return &SubscriptionUseCase{
		repo:  repo,
		slack: slackService,
	}
}

// HandleContact subscribes the sender of a direct message. The second return
// value reports whether the user was already subscribed before this message.
func (uc *SubscriptionUseCase) HandleContact(ctx context.Context, msg *model.InboundMessage) (*model.Subscriber, bool, error) {
	if msg == nil {
		return nil, false, goerr.New("message is nil")
	}

	contact := model.Contact{
		UserID:      msg.UserID,
		DisplayName: uc.lookupDisplayName(ctx, msg.UserID),
	}
	if msg.ChannelType == model.ChannelTypeIM {
		contact.ChannelID = msg.ChannelID
	}

	sub, wasSubscribed, err := uc.repo.Subscriber().UpsertOnContact(ctx, contact)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to subscribe user", goerr.V("user_id", msg.UserID))
	}

	logging.From(ctx).Info("subscriber contacted",
		"user_id", sub.UserID,
		"was_subscribed", wasSubscribed,
	)
	return sub, wasSubscribed, nil
}

// lookupDisplayName asks Slack for the user's name. It is only called when
// the stored record has no name yet, and a failure leaves the name empty.
func (uc *SubscriptionUseCase) lookupDisplayName(ctx context.Context, userID types.UserID) string {
	if uc.slack == nil {
		return ""
	}

	existing, err := uc.repo.Subscriber().Get(ctx, userID)
	if err != nil {
		errutil.Handle(ctx, err, "failed to read subscriber before name lookup")
		return ""
	}
	if existing != nil && existing.DisplayName != "" {
		return ""
	}

	user, err := uc.slack.GetUserInfo(ctx, userID)
	if err != nil {
		logging.From(ctx).Warn("failed to fetch user info, continuing without display name",
			"user_id", userID,
			"error", err.Error())
		return ""
	}
	return user.PreferredName()
}

// Unsubscribe opts the user out. The cached DM channel is kept.
func (uc *SubscriptionUseCase) Unsubscribe(ctx context.Context, userID types.UserID) error {
	if err := uc.repo.Subscriber().Unsubscribe(ctx, userID); err != nil {
		return goerr.Wrap(err, "failed to unsubscribe user", goerr.V("user_id", userID))
	}

	logging.From(ctx).Info("subscriber opted out", "user_id", userID)
	return nil
}

// ResolveDirectChannel returns the subscriber's DM channel, opening and
// caching it on first use. A cached channel is trusted for good; it is only
// replaced when the user writes to the bot from another channel.
// Concurrent resolutions for the same user share one API call.
func (uc *SubscriptionUseCase) ResolveDirectChannel(ctx context.Context, sub *model.Subscriber) (types.ChannelID, error) {
	if sub == nil {
		return "", goerr.New("subscriber is nil")
	}
	if sub.DirectChannelID != "" {
		return sub.DirectChannelID, nil
	}
	if uc.slack == nil {
		return "", goerr.New("slack service is not configured", goerr.V("user_id", sub.UserID))
	}

	v, err, _ := uc.open.Do(string(sub.UserID), func() (any, error) {
		channelID, err := uc.slack.OpenDirectChannel(ctx, sub.UserID)
		if err != nil {
			return types.ChannelID(""), goerr.Wrap(err, "failed to resolve direct channel", goerr.V("user_id", sub.UserID))
		}

		// The channel is usable even if caching it fails
		if err := uc.repo.Subscriber().SaveDirectChannel(ctx, sub.UserID, channelID); err != nil {
			errutil.Handle(ctx, err, "failed to cache direct channel")
		}
		return channelID, nil
	})
	if err != nil {
		return "", err
	}

	return v.(types.ChannelID), nil
}
