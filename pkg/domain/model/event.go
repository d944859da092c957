package model

import (
	"strings"

	"github.com/secmon-lab/babbell/pkg/domain/types"
)

// ChannelTypeIM is the Slack channel type of a direct message
const ChannelTypeIM = "im"

// InboundMessage is a message event delivered by Slack
type InboundMessage struct {
	EventID     string
	UserID      types.UserID
	ChannelID   types.ChannelID
	ChannelType string
	BotID       string
	SubType     string
	Text        string
	TS          string
}

// IsDirectFromUser reports whether the message is a plain DM written by a human
func (x *InboundMessage) IsDirectFromUser() bool {
	return x.ChannelType == ChannelTypeIM && x.UserID != "" && x.BotID == "" && x.SubType == ""
}

// DedupKey identifies redeliveries of the same event
func (x *InboundMessage) DedupKey() string {
	if x.EventID != "" {
		return "msg:" + x.EventID
	}
	return "msg:" + string(x.ChannelID) + ":" + x.TS
}

// InboundAction is a button click delivered by Slack
type InboundAction struct {
	UserID    types.UserID
	ChannelID types.ChannelID
	ActionID  string
	Value     string
	ActionTS  string
	MessageTS string
}

// DedupKey identifies redeliveries of the same click
func (x *InboundAction) DedupKey() string {
	return "act:" + strings.Join([]string{
		x.MessageTS,
		string(x.UserID),
		x.ActionID,
		x.Value,
		x.ActionTS,
	}, ":")
}

// CooldownKey groups clicks of the same button by the same user
func (x *InboundAction) CooldownKey() string {
	return string(x.UserID) + ":" + x.Value
}
