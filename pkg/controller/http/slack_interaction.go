package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/utils/async"
	"github.com/secmon-lab/babbell/pkg/utils/errutil"
	"github.com/slack-go/slack"
)

// SlackInteractionHandler handles Slack interactive component payloads (button clicks)
type SlackInteractionHandler struct {
	handler SlackHandler
}

// NewSlackInteractionHandler creates a new Slack interaction handler
func NewSlackInteractionHandler(handler SlackHandler) *SlackInteractionHandler {
	return &SlackInteractionHandler{
		handler: handler,
	}
}

// ServeHTTP acknowledges the payload and processes it in the background
func (h *SlackInteractionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Slack sends interaction payloads as application/x-www-form-urlencoded
	// with a "payload" field containing JSON
	payload := r.FormValue("payload")
	if payload == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("missing payload field in interaction request"), http.StatusBadRequest)
		return
	}

	var callback slack.InteractionCallback
	if err := json.Unmarshal([]byte(payload), &callback); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to parse interaction payload"), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)

	if callback.Type != slack.InteractionTypeBlockActions {
		return
	}

	async.Dispatch(ctx, func(ctx context.Context) error {
		if err := h.handler.HandleInteraction(ctx, &callback); err != nil {
			return goerr.Wrap(err, "failed to handle slack interaction",
				goerr.V("user_id", callback.User.ID))
		}
		return nil
	})
}
