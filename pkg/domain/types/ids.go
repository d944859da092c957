package types

import (
	"regexp"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	// Slack user IDs: U/W followed by uppercase alphanumerics
	userIDPattern = regexp.MustCompile(`^[UW][A-Z0-9]{2,}$`)
	// Slack conversation IDs: C (channel), D (direct message) or G (group)
	channelIDPattern = regexp.MustCompile(`^[CDG][A-Z0-9]{2,}$`)
)

// UserID is a Slack user identifier
type UserID string

// Validate checks if the UserID is valid
func (x UserID) Validate() error {
	if x == "" {
		return goerr.New("user ID cannot be empty")
	}
	if !userIDPattern.MatchString(string(x)) {
		return goerr.New("invalid Slack user ID", goerr.V("user_id", x))
	}
	return nil
}

// String returns the string representation of UserID
func (x UserID) String() string {
	return string(x)
}

// Mention renders the ID as a Slack mention
func (x UserID) Mention() string {
	return "<@" + string(x) + ">"
}

// ChannelID is a Slack conversation identifier
type ChannelID string

// Validate checks if the ChannelID is valid
func (x ChannelID) Validate() error {
	if x == "" {
		return goerr.New("channel ID cannot be empty")
	}
	if !channelIDPattern.MatchString(string(x)) {
		return goerr.New("invalid Slack channel ID", goerr.V("channel_id", x))
	}
	return nil
}

// String returns the string representation of ChannelID
func (x ChannelID) String() string {
	return string(x)
}

// BroadcastID identifies one broadcast and its audit record
type BroadcastID string

// NewBroadcastID generates a random BroadcastID
func NewBroadcastID() BroadcastID {
	return BroadcastID(uuid.NewString())
}

// Validate checks if the BroadcastID is valid
func (x BroadcastID) Validate() error {
	if x == "" {
		return goerr.New("broadcast ID cannot be empty")
	}
	if _, err := uuid.Parse(string(x)); err != nil {
		return goerr.Wrap(err, "broadcast ID must be a UUID", goerr.V("broadcast_id", x))
	}
	return nil
}

// String returns the string representation of BroadcastID
func (x BroadcastID) String() string {
	return string(x)
}
