package model

import (
	"time"

	"github.com/secmon-lab/babbell/pkg/domain/types"
)

// Subscriber is one Slack user in the opt-in registry. Records are never
// deleted; opting out only clears IsSubscribed.
type Subscriber struct {
	UserID          types.UserID
	DisplayName     string
	DirectChannelID types.ChannelID // empty until resolved
	IsSubscribed    bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Contact is what an inbound direct message tells us about its sender.
type Contact struct {
	UserID      types.UserID
	DisplayName string
	// ChannelID is the DM channel the message arrived on. Empty leaves the cached value as is.
	ChannelID types.ChannelID
}

// Copy returns a shallow copy of the subscriber
func (x *Subscriber) Copy() *Subscriber {
	if x == nil {
		return nil
	}
	c := *x
	return &c
}
