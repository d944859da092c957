package interfaces

import (
	"context"

	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/secmon-lab/babbell/pkg/domain/types"
)

// SubscriberRepository is the opt-in registry. Writes to the same user are
// serialized; writes to different users may proceed concurrently.
type SubscriberRepository interface {
	// UpsertOnContact creates the subscriber if absent and marks it subscribed.
	// A non-empty contact.ChannelID replaces the cached DM channel; an empty one
	// keeps it. The second return value is the subscription state before the call.
	UpsertOnContact(ctx context.Context, contact model.Contact) (*model.Subscriber, bool, error)

	// Unsubscribe clears IsSubscribed and keeps the cached DM channel.
	// Unknown users are ignored.
	Unsubscribe(ctx context.Context, userID types.UserID) error

	// ListSubscribed returns subscribed users ordered by user ID
	ListSubscribed(ctx context.Context) ([]*model.Subscriber, error)

	// Get returns nil without error when the user is unknown
	Get(ctx context.Context, userID types.UserID) (*model.Subscriber, error)

	// SaveDirectChannel caches the resolved DM channel. It returns ErrNotFound
	// for unknown users.
	SaveDirectChannel(ctx context.Context, userID types.UserID, channelID types.ChannelID) error
}
