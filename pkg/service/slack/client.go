package slack

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/domain/types"
	"github.com/secmon-lab/babbell/pkg/utils/logging"
	"github.com/slack-go/slack"
)

const (
	// DefaultRateLimitRetries is how many times a call rejected with HTTP 429 is retried
	DefaultRateLimitRetries = 1
	// maxRetryWait caps the Retry-After delay honored per attempt
	maxRetryWait = 30 * time.Second
)

// client implements Service interface
type client struct {
	api        *slack.Client
	retries    int
	apiOptions []slack.Option
}

// Option is a functional option for client configuration
type Option func(*client)

// WithRateLimitRetries sets how many times a rate limited call is retried
func WithRateLimitRetries(n int) Option {
	return func(c *client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithAPIURL points the client at another Web API endpoint. The URL must end
// with a slash.
func WithAPIURL(url string) Option {
	return func(c *client) {
		c.apiOptions = append(c.apiOptions, slack.OptionAPIURL(url))
	}
}

// New creates a new Slack service with the provided bot token
func New(token string, opts ...Option) (Service, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}

	c := &client{
		retries: DefaultRateLimitRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.api = slack.New(token, c.apiOptions...)

	return c, nil
}

// withRetry runs fn and retries it after the server supplied delay while
// Slack answers with a rate limit error.
func (c *client) withRetry(ctx context.Context, method string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slack.RateLimitedError
		if !errors.As(err, &rle) || attempt >= c.retries {
			return err
		}

		wait := min(rle.RetryAfter, maxRetryWait)
		logging.From(ctx).Warn("Slack API rate limited, retrying",
			"method", method,
			"retry_after", wait,
			"attempt", attempt+1)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return goerr.Wrap(ctx.Err(), "canceled while waiting for rate limit", goerr.V("method", method))
		case <-timer.C:
		}
	}
}

// AuthTest verifies the bot token
func (c *client) AuthTest(ctx context.Context) (*Identity, error) {
	var resp *slack.AuthTestResponse
	err := c.withRetry(ctx, "auth.test", func() error {
		var err error
		resp, err = c.api.AuthTestContext(ctx)
		return err
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to verify Slack bot token")
	}

	return &Identity{
		TeamID: resp.TeamID,
		Team:   resp.Team,
		UserID: types.UserID(resp.UserID),
		BotID:  resp.BotID,
	}, nil
}

// OpenDirectChannel opens a DM conversation with the user
func (c *client) OpenDirectChannel(ctx context.Context, userID types.UserID) (types.ChannelID, error) {
	var channel *slack.Channel
	err := c.withRetry(ctx, "conversations.open", func() error {
		var err error
		channel, _, _, err = c.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{
			Users: []string{string(userID)},
		})
		return err
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to open direct channel", goerr.V("user_id", userID))
	}
	if channel == nil || channel.ID == "" {
		return "", goerr.New("conversations.open returned no channel", goerr.V("user_id", userID))
	}

	return types.ChannelID(channel.ID), nil
}

// PostMessage posts a Block Kit message to a channel
func (c *client) PostMessage(ctx context.Context, channelID types.ChannelID, blocks []slack.Block, text string) (string, error) {
	var ts string
	err := c.withRetry(ctx, "chat.postMessage", func() error {
		var err error
		_, ts, err = c.api.PostMessageContext(ctx, string(channelID),
			slack.MsgOptionBlocks(blocks...),
			slack.MsgOptionText(text, false),
		)
		return err
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to post message", goerr.V("channel_id", channelID))
	}

	return ts, nil
}

// GetUserInfo retrieves user information for the given user ID
func (c *client) GetUserInfo(ctx context.Context, userID types.UserID) (*User, error) {
	var user *slack.User
	err := c.withRetry(ctx, "users.info", func() error {
		var err error
		user, err = c.api.GetUserInfoContext(ctx, string(userID))
		return err
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get user info", goerr.V("user_id", userID))
	}

	return &User{
		ID:          types.UserID(user.ID),
		Name:        user.Name,
		RealName:    user.RealName,
		DisplayName: user.Profile.DisplayName,
		IsBot:       user.IsBot,
	}, nil
}
