package interfaces

import (
	"context"

	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/secmon-lab/babbell/pkg/domain/types"
)

// SendLogRepository stores broadcast audit records
type SendLogRepository interface {
	// Put persists a completed record. Records are immutable: a second Put
	// with the same ID fails with ErrAlreadyExists.
	Put(ctx context.Context, record *model.BroadcastRecord) error

	// Get returns nil without error when the record does not exist
	Get(ctx context.Context, id types.BroadcastID) (*model.BroadcastRecord, error)

	// List returns up to limit records, newest first
	List(ctx context.Context, limit int) ([]*model.BroadcastRecord, error)
}
