package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/domain/interfaces"
	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/secmon-lab/babbell/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type subscriberRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.SubscriberRepository = &subscriberRepository{}

func newSubscriberRepository(client *firestore.Client) *subscriberRepository {
	return &subscriberRepository{
		client: client,
	}
}

// subscriberDoc is the Firestore persistence model. The document ID is the
// Slack user ID.
type subscriberDoc struct {
	UserID          string    `firestore:"user_id"`
	DisplayName     string    `firestore:"display_name"`
	DirectChannelID string    `firestore:"dm_channel_id"`
	IsSubscribed    bool      `firestore:"is_subscribed"`
	CreatedAt       time.Time `firestore:"created_at"`
	UpdatedAt       time.Time `firestore:"updated_at"`
}

func (r *subscriberRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, usersCollection))
}

func toSubscriberDoc(sub *model.Subscriber) *subscriberDoc {
	return &subscriberDoc{
		UserID:          string(sub.UserID),
		DisplayName:     sub.DisplayName,
		DirectChannelID: string(sub.DirectChannelID),
		IsSubscribed:    sub.IsSubscribed,
		CreatedAt:       sub.CreatedAt,
		UpdatedAt:       sub.UpdatedAt,
	}
}

func fromSubscriberDoc(doc *subscriberDoc) *model.Subscriber {
	return &model.Subscriber{
		UserID:          types.UserID(doc.UserID),
		DisplayName:     doc.DisplayName,
		DirectChannelID: types.ChannelID(doc.DirectChannelID),
		IsSubscribed:    doc.IsSubscribed,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}

func (r *subscriberRepository) UpsertOnContact(ctx context.Context, contact model.Contact) (*model.Subscriber, bool, error) {
	if err := contact.UserID.Validate(); err != nil {
		return nil, false, goerr.Wrap(err, "invalid contact")
	}

	ref := r.collection().Doc(string(contact.UserID))

	var (
		result        *model.Subscriber
		wasSubscribed bool
	)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := time.Now().UTC()
		sub := &model.Subscriber{
			UserID:    contact.UserID,
			CreatedAt: now,
		}
		wasSubscribed = false

		doc, err := tx.Get(ref)
		switch {
		case err == nil:
			var d subscriberDoc
			if err := doc.DataTo(&d); err != nil {
				return goerr.Wrap(err, "failed to unmarshal subscriber")
			}
			sub = fromSubscriberDoc(&d)
			wasSubscribed = sub.IsSubscribed
		case status.Code(err) == codes.NotFound:
		default:
			return goerr.Wrap(err, "failed to get subscriber")
		}

		sub.IsSubscribed = true
		if contact.DisplayName != "" {
			sub.DisplayName = contact.DisplayName
		}
		if contact.ChannelID != "" {
			sub.DirectChannelID = contact.ChannelID
		}
		sub.UpdatedAt = now

		result = sub
		return tx.Set(ref, toSubscriberDoc(sub))
	})
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to upsert subscriber", goerr.V("user_id", contact.UserID))
	}

	return result, wasSubscribed, nil
}

func (r *subscriberRepository) Unsubscribe(ctx context.Context, userID types.UserID) error {
	_, err := r.collection().Doc(string(userID)).Update(ctx, []firestore.Update{
		{Path: "is_subscribed", Value: false},
		{Path: "updated_at", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return goerr.Wrap(err, "failed to unsubscribe", goerr.V("user_id", userID))
	}
	return nil
}

// ListSubscribed requires the composite index (is_subscribed, user_id)
// created by the migrate command.
func (r *subscriberRepository) ListSubscribed(ctx context.Context) ([]*model.Subscriber, error) {
	iter := r.collection().
		Where("is_subscribed", "==", true).
		OrderBy("user_id", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var result []*model.Subscriber
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate subscribers")
		}

		var d subscriberDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal subscriber", goerr.V("docID", doc.Ref.ID))
		}
		result = append(result, fromSubscriberDoc(&d))
	}

	return result, nil
}

func (r *subscriberRepository) Get(ctx context.Context, userID types.UserID) (*model.Subscriber, error) {
	doc, err := r.collection().Doc(string(userID)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get subscriber", goerr.V("user_id", userID))
	}

	var d subscriberDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal subscriber", goerr.V("user_id", userID))
	}
	return fromSubscriberDoc(&d), nil
}

func (r *subscriberRepository) SaveDirectChannel(ctx context.Context, userID types.UserID, channelID types.ChannelID) error {
	_, err := r.collection().Doc(string(userID)).Update(ctx, []firestore.Update{
		{Path: "dm_channel_id", Value: string(channelID)},
		{Path: "updated_at", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(interfaces.ErrNotFound, "subscriber not found", goerr.V("user_id", userID))
		}
		return goerr.Wrap(err, "failed to save direct channel", goerr.V("user_id", userID))
	}
	return nil
}
