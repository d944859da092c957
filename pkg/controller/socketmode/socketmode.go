package socketmode

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/utils/async"
	"github.com/secmon-lab/babbell/pkg/utils/logging"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// SlackHandler processes Slack deliveries received over the socket
type SlackHandler interface {
	HandleSlackEvent(ctx context.Context, event *slackevents.EventsAPIEvent) error
	HandleInteraction(ctx context.Context, callback *slack.InteractionCallback) error
}

// acker acknowledges an envelope so Slack does not redeliver it
type acker interface {
	Ack(req socketmode.Request, payload ...any)
}

// Controller receives events over a Socket Mode connection. It needs no
// public endpoint, so it fits deployments behind a firewall.
type Controller struct {
	client  *socketmode.Client
	handler SlackHandler
}

type Option func(*options)

type options struct {
	apiOptions []slack.Option
	debug      bool
}

// WithAPIURL points the connection at another Web API endpoint
func WithAPIURL(url string) Option {
	return func(o *options) {
		o.apiOptions = append(o.apiOptions, slack.OptionAPIURL(url))
	}
}

// WithDebug logs raw socket traffic
func WithDebug(debug bool) Option {
	return func(o *options) {
		o.debug = debug
	}
}

// New creates a Socket Mode controller. appToken is the app-level token
// (xapp-) with connections:write.
func New(botToken, appToken string, handler SlackHandler, opts ...Option) (*Controller, error) {
	if botToken == "" {
		return nil, goerr.New("Slack bot token is required for Socket Mode")
	}
	if !strings.HasPrefix(appToken, "xapp-") {
		return nil, goerr.New("Slack app token must start with xapp-")
	}
	if handler == nil {
		return nil, goerr.New("handler is required")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	api := slack.New(botToken, append(o.apiOptions, slack.OptionAppLevelToken(appToken))...)
	client := socketmode.New(api, socketmode.OptionDebug(o.debug))

	return &Controller{
		client:  client,
		handler: handler,
	}, nil
}

// Run holds the connection open and dispatches events until ctx is
// cancelled or the connection fails for good.
func (c *Controller) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		// A fatal connection error must also stop the receive loop
		defer cancel()
		runErr <- c.client.RunContext(runCtx)
	}()

	serve(runCtx, c.client.Events, c.client, c.handler)

	if err := <-runErr; err != nil && ctx.Err() == nil {
		return goerr.Wrap(err, "socket mode connection failed")
	}
	return nil
}

// serve is the receive loop. Every envelope that carries a request is acked
// before it is handled.
func serve(ctx context.Context, events <-chan socketmode.Event, ack acker, handler SlackHandler) {
	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-events:
			if !ok {
				return
			}
			handle(ctx, evt, ack, handler)
		}
	}
}

func handle(ctx context.Context, evt socketmode.Event, ack acker, handler SlackHandler) {
	logger := logging.From(ctx)

	switch evt.Type {
	case socketmode.EventTypeConnecting:
		logger.Info("Connecting to Slack via Socket Mode")
	case socketmode.EventTypeConnected:
		logger.Info("Connected to Slack via Socket Mode")
	case socketmode.EventTypeConnectionError:
		logger.Warn("Socket Mode connection error, retrying", "data", evt.Data)
	case socketmode.EventTypeDisconnect:
		logger.Info("Socket Mode disconnected")
	case socketmode.EventTypeInvalidAuth:
		logger.Error("Socket Mode authentication failed, check the app token")
	case socketmode.EventTypeIncomingError:
		logger.Error("Socket Mode incoming error", "data", evt.Data)

	case socketmode.EventTypeEventsAPI:
		if evt.Request != nil {
			ack.Ack(*evt.Request)
		}
		event, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			logger.Warn("unexpected events API payload", "data_type", fmt.Sprintf("%T", evt.Data))
			return
		}
		if event.Type != slackevents.CallbackEvent {
			return
		}
		async.Dispatch(ctx, func(ctx context.Context) error {
			if err := handler.HandleSlackEvent(ctx, &event); err != nil {
				return goerr.Wrap(err, "failed to handle slack event")
			}
			return nil
		})

	case socketmode.EventTypeInteractive:
		if evt.Request != nil {
			ack.Ack(*evt.Request)
		}
		callback, ok := evt.Data.(slack.InteractionCallback)
		if !ok {
			logger.Warn("unexpected interaction payload", "data_type", fmt.Sprintf("%T", evt.Data))
			return
		}
		if callback.Type != slack.InteractionTypeBlockActions {
			return
		}
		async.Dispatch(ctx, func(ctx context.Context) error {
			if err := handler.HandleInteraction(ctx, &callback); err != nil {
				return goerr.Wrap(err, "failed to handle slack interaction",
					goerr.V("user_id", callback.User.ID))
			}
			return nil
		})

	default:
		// Slash commands and the like are not used, but still need an ack
		if evt.Request != nil {
			ack.Ack(*evt.Request)
		}
	}
}
