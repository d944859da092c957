package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/cli/config"
	"github.com/secmon-lab/babbell/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var buttonsCfg config.Buttons
	var slackCfg config.Slack
	var checkSlack bool

	var flags []cli.Flag
	flags = append(flags, buttonsCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, &cli.BoolFlag{
		Name:        "check-slack",
		Usage:       "Call auth.test with the bot token",
		Destination: &checkSlack,
	})

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate button definitions and optionally the Slack credentials",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			buttons, err := buttonsCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "button validation failed")
			}

			source := buttonsCfg.Path()
			if source == "" {
				source = "built-in"
			}
			logger.Info("Button validation passed",
				"source", source,
				"button_count", len(buttons.All()),
				"broadcast_count", len(buttons.Broadcasts()),
			)
			for _, b := range buttons.All() {
				logger.Info("Button",
					"value", b.Value,
					"label", b.Label,
					"broadcast", b.IsBroadcast,
					"include_menu", b.IncludeMenu,
					"opt_out", b.IsOptOut,
				)
			}

			if !checkSlack {
				return nil
			}

			if err := slackCfg.Validate(); err != nil {
				return goerr.Wrap(err, "slack configuration validation failed")
			}
			svc, err := slackCfg.Configure()
			if err != nil {
				return err
			}
			identity, err := svc.AuthTest(ctx)
			if err != nil {
				return goerr.Wrap(err, "slack auth.test failed")
			}

			logger.Info("Slack credentials are valid",
				"team", identity.Team,
				"team_id", identity.TeamID,
				"bot_user_id", identity.UserID,
				"socket_mode", slackCfg.IsSocketModeConfigured(),
				"webhook", slackCfg.IsWebhookConfigured(),
			)
			return nil
		},
	}
}
