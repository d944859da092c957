package config

import (
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	slacksvc "github.com/secmon-lab/babbell/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

type Slack struct {
	botToken      string
	signingSecret string
	appToken      string
	retries       int
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token (xoxb-)",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("BABBELL_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-signing-secret",
			Usage:       "Slack Signing Secret. Enables the Events API and interactivity webhooks",
			Category:    "Slack",
			Destination: &x.signingSecret,
			Sources:     cli.EnvVars("BABBELL_SLACK_SIGNING_SECRET"),
		},
		&cli.StringFlag{
			Name:        "slack-app-token",
			Usage:       "Slack App-Level Token (xapp-). Enables Socket Mode",
			Category:    "Slack",
			Destination: &x.appToken,
			Sources:     cli.EnvVars("BABBELL_SLACK_APP_TOKEN"),
		},
		&cli.IntFlag{
			Name:        "slack-rate-limit-retries",
			Usage:       "How many times a rate limited Slack API call is retried",
			Category:    "Slack",
			Value:       slacksvc.DefaultRateLimitRetries,
			Destination: &x.retries,
			Sources:     cli.EnvVars("BABBELL_SLACK_RATE_LIMIT_RETRIES"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.Int("signing-secret.len", len(x.signingSecret)),
		slog.Int("app-token.len", len(x.appToken)),
		slog.Int("rate-limit-retries", x.retries),
	)
}

// Validate checks that a bot token and at least one inbound transport are set
func (x *Slack) Validate() error {
	if x.botToken == "" {
		return goerr.Wrap(ErrMissingSlackToken, "set --slack-bot-token")
	}
	if !strings.HasPrefix(x.botToken, "xoxb-") {
		return goerr.Wrap(ErrInvalidConfig, "Slack bot token must start with xoxb-")
	}
	if x.appToken != "" && !strings.HasPrefix(x.appToken, "xapp-") {
		return goerr.Wrap(ErrInvalidConfig, "Slack app token must start with xapp-")
	}
	if x.signingSecret == "" && x.appToken == "" {
		return goerr.Wrap(ErrNoSlackTransport, "set --slack-signing-secret and/or --slack-app-token")
	}
	return nil
}

// Configure creates the Slack Web API client
func (x *Slack) Configure() (slacksvc.Service, error) {
	if x.botToken == "" {
		return nil, goerr.Wrap(ErrMissingSlackToken, "set --slack-bot-token")
	}
	svc, err := slacksvc.New(x.botToken, slacksvc.WithRateLimitRetries(x.retries))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack service")
	}
	return svc, nil
}

// BotToken returns the Slack bot token
func (x *Slack) BotToken() string {
	return x.botToken
}

// AppToken returns the Slack app-level token
func (x *Slack) AppToken() string {
	return x.appToken
}

// SigningSecret returns the Slack signing secret
func (x *Slack) SigningSecret() string {
	return x.signingSecret
}

// IsWebhookConfigured checks if Slack webhook is configured
func (x *Slack) IsWebhookConfigured() bool {
	return x.signingSecret != ""
}

// IsSocketModeConfigured checks if Socket Mode is configured
func (x *Slack) IsSocketModeConfigured() bool {
	return x.appToken != ""
}
