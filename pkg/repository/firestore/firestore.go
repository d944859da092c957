package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/domain/interfaces"
)

const (
	usersCollection   = "users"
	sendLogCollection = "send_log"
)

type Firestore struct {
	client     *firestore.Client
	subscriber *subscriberRepository
	sendLog    *sendLogRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix prepends "<prefix>_" to every collection name
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.subscriber.collectionPrefix = prefix
		f.sendLog.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:     client,
		subscriber: newSubscriberRepository(client),
		sendLog:    newSendLogRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Subscriber() interfaces.SubscriberRepository {
	return f.subscriber
}

func (f *Firestore) SendLog() interfaces.SendLogRepository {
	return f.sendLog
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func collectionName(prefix, name string) string {
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}

// UsersCollectionName returns the subscriber collection name for the prefix.
// The migrate command creates indexes on it.
func UsersCollectionName(prefix string) string {
	return collectionName(prefix, usersCollection)
}
