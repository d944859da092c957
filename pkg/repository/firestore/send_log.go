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

type sendLogRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.SendLogRepository = &sendLogRepository{}

func newSendLogRepository(client *firestore.Client) *sendLogRepository {
	return &sendLogRepository{
		client: client,
	}
}

type sendLogDoc struct {
	BroadcastID  string    `firestore:"broadcast_id"`
	ActionValue  string    `firestore:"action_value"`
	ActorUserID  string    `firestore:"actor_user_id"`
	TargetCount  int       `firestore:"target_count"`
	SuccessCount int       `firestore:"success_count"`
	FailureCount int       `firestore:"failure_count"`
	StartedAt    time.Time `firestore:"started_at"`
	CompletedAt  time.Time `firestore:"completed_at"`
}

func (r *sendLogRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, sendLogCollection))
}

func toSendLogDoc(record *model.BroadcastRecord) *sendLogDoc {
	return &sendLogDoc{
		BroadcastID:  string(record.ID),
		ActionValue:  record.ActionValue,
		ActorUserID:  string(record.ActorUserID),
		TargetCount:  record.TargetCount,
		SuccessCount: record.SuccessCount,
		FailureCount: record.FailureCount,
		StartedAt:    record.StartedAt,
		CompletedAt:  record.CompletedAt,
	}
}

func fromSendLogDoc(doc *sendLogDoc) *model.BroadcastRecord {
	return &model.BroadcastRecord{
		ID:           types.BroadcastID(doc.BroadcastID),
		ActionValue:  doc.ActionValue,
		ActorUserID:  types.UserID(doc.ActorUserID),
		TargetCount:  doc.TargetCount,
		SuccessCount: doc.SuccessCount,
		FailureCount: doc.FailureCount,
		StartedAt:    doc.StartedAt,
		CompletedAt:  doc.CompletedAt,
	}
}

func (r *sendLogRepository) Put(ctx context.Context, record *model.BroadcastRecord) error {
	if record == nil {
		return goerr.New("broadcast record is nil")
	}
	if err := record.Validate(); err != nil {
		return goerr.Wrap(err, "invalid broadcast record")
	}

	if _, err := r.collection().Doc(string(record.ID)).Create(ctx, toSendLogDoc(record)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return goerr.Wrap(interfaces.ErrAlreadyExists, "broadcast record already exists", goerr.V("broadcast_id", record.ID))
		}
		return goerr.Wrap(err, "failed to put broadcast record", goerr.V("broadcast_id", record.ID))
	}
	return nil
}

func (r *sendLogRepository) Get(ctx context.Context, id types.BroadcastID) (*model.BroadcastRecord, error) {
	doc, err := r.collection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get broadcast record", goerr.V("broadcast_id", id))
	}

	var d sendLogDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal broadcast record", goerr.V("broadcast_id", id))
	}
	return fromSendLogDoc(&d), nil
}

func (r *sendLogRepository) List(ctx context.Context, limit int) ([]*model.BroadcastRecord, error) {
	if limit <= 0 {
		return nil, goerr.New("limit must be positive", goerr.V("limit", limit))
	}

	iter := r.collection().
		OrderBy("started_at", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var result []*model.BroadcastRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate broadcast records")
		}

		var d sendLogDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal broadcast record", goerr.V("docID", doc.Ref.ID))
		}
		result = append(result, fromSendLogDoc(&d))
	}

	return result, nil
}
