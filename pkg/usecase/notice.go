package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/domain/types"
	slacksvc "github.com/secmon-lab/babbell/pkg/service/slack"
	"github.com/secmon-lab/babbell/pkg/utils/errutil"
	"github.com/slack-go/slack"
)

// notifier sends best-effort direct messages. Failures are logged and never
// returned: a lost notice must not fail the operation that triggered it.
type notifier struct {
	slack slacksvc.Service
}

// notify posts to channelID, opening a DM with the user when no channel is known
func (n *notifier) notify(ctx context.Context, userID types.UserID, channelID types.ChannelID, blocks []slack.Block, text string) {
	if n.slack == nil {
		return
	}

	if channelID == "" {
		opened, err := n.slack.OpenDirectChannel(ctx, userID)
		if err != nil {
			errutil.Handle(ctx, goerr.Wrap(err, "failed to open DM for notice", goerr.V("user_id", userID)), "notice not delivered")
			return
		}
		channelID = opened
	}

	if _, err := n.slack.PostMessage(ctx, channelID, blocks, text); err != nil {
		errutil.Handle(ctx, goerr.Wrap(err, "failed to post notice",
			goerr.V("user_id", userID),
			goerr.V("channel_id", channelID)), "notice not delivered")
	}
}
