package slack

import (
	"context"

	"github.com/secmon-lab/babbell/pkg/domain/types"
	"github.com/slack-go/slack"
)

// Service provides the Slack Web API calls the bot needs
type Service interface {
	// AuthTest verifies the bot token and returns the bot's own identity
	AuthTest(ctx context.Context) (*Identity, error)

	// OpenDirectChannel opens (or returns the existing) DM conversation with the user
	OpenDirectChannel(ctx context.Context, userID types.UserID) (types.ChannelID, error)

	// PostMessage posts a Block Kit message to a channel and returns the message timestamp.
	// The text parameter is used as a fallback for notifications.
	PostMessage(ctx context.Context, channelID types.ChannelID, blocks []slack.Block, text string) (string, error)

	// GetUserInfo retrieves user information for the given user ID
	GetUserInfo(ctx context.Context, userID types.UserID) (*User, error)
}

// Identity is the result of auth.test
type Identity struct {
	TeamID string
	Team   string
	UserID types.UserID
	BotID  string
}

// User represents a Slack user
type User struct {
	ID          types.UserID
	Name        string
	RealName    string
	DisplayName string
	IsBot       bool
}

// PreferredName returns the name a human would recognize: the profile display
// name, then the real name, then the handle.
func (x *User) PreferredName() string {
	switch {
	case x.DisplayName != "":
		return x.DisplayName
	case x.RealName != "":
		return x.RealName
	default:
		return x.Name
	}
}
