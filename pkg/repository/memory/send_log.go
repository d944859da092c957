package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/domain/interfaces"
	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/secmon-lab/babbell/pkg/domain/types"
)

type sendLogRepository struct {
	mu      sync.RWMutex
	records map[types.BroadcastID]model.BroadcastRecord
}

var _ interfaces.SendLogRepository = &sendLogRepository{}

func newSendLogRepository() *sendLogRepository {
	return &sendLogRepository{
		records: make(map[types.BroadcastID]model.BroadcastRecord),
	}
}

func (r *sendLogRepository) Put(ctx context.Context, record *model.BroadcastRecord) error {
	if record == nil {
		return goerr.New("broadcast record is nil")
	}
	if err := record.Validate(); err != nil {
		return goerr.Wrap(err, "invalid broadcast record")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[record.ID]; exists {
		return goerr.Wrap(interfaces.ErrAlreadyExists, "broadcast record already exists", goerr.V("broadcast_id", record.ID))
	}
	r.records[record.ID] = *record
	return nil
}

func (r *sendLogRepository) Get(ctx context.Context, id types.BroadcastID) (*model.BroadcastRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (r *sendLogRepository) List(ctx context.Context, limit int) ([]*model.BroadcastRecord, error) {
	if limit <= 0 {
		return nil, goerr.New("limit must be positive", goerr.V("limit", limit))
	}

	r.mu.RLock()
	result := make([]*model.BroadcastRecord, 0, len(r.records))
	for _, record := range r.records {
		copied := record
		result = append(result, &copied)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].StartedAt.After(result[j].StartedAt)
		}
		return result[i].ID > result[j].ID
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
