package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/domain/interfaces"
	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/secmon-lab/babbell/pkg/domain/types"
)

// subscriberRecord guards one user. The repository lock only protects the
// map itself, so writes to different users do not contend.
type subscriberRecord struct {
	mu  sync.Mutex
	sub model.Subscriber
}

type subscriberRepository struct {
	mu      sync.RWMutex
	records map[types.UserID]*subscriberRecord
}

var _ interfaces.SubscriberRepository = &subscriberRepository{}

func newSubscriberRepository() *subscriberRepository {
	return &subscriberRepository{
		records: make(map[types.UserID]*subscriberRecord),
	}
}

func (r *subscriberRepository) lookup(userID types.UserID) *subscriberRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.records[userID]
}

func (r *subscriberRepository) lookupOrCreate(userID types.UserID, now time.Time) (*subscriberRecord, bool) {
	if rec := r.lookup(userID); rec != nil {
		return rec, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if rec, ok := r.records[userID]; ok {
		return rec, false
	}
	rec := &subscriberRecord{
		sub: model.Subscriber{
			UserID:    userID,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	r.records[userID] = rec
	return rec, true
}

func (r *subscriberRepository) UpsertOnContact(ctx context.Context, contact model.Contact) (*model.Subscriber, bool, error) {
	if err := contact.UserID.Validate(); err != nil {
		return nil, false, goerr.Wrap(err, "invalid contact")
	}

	now := time.Now()
	rec, _ := r.lookupOrCreate(contact.UserID, now)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	wasSubscribed := rec.sub.IsSubscribed
	rec.sub.IsSubscribed = true
	if contact.DisplayName != "" {
		rec.sub.DisplayName = contact.DisplayName
	}
	if contact.ChannelID != "" {
		rec.sub.DirectChannelID = contact.ChannelID
	}
	rec.sub.UpdatedAt = now

	return rec.sub.Copy(), wasSubscribed, nil
}

func (r *subscriberRepository) Unsubscribe(ctx context.Context, userID types.UserID) error {
	rec := r.lookup(userID)
	if rec == nil {
		return nil
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.sub.IsSubscribed = false
	rec.sub.UpdatedAt = time.Now()
	return nil
}

func (r *subscriberRepository) ListSubscribed(ctx context.Context) ([]*model.Subscriber, error) {
	r.mu.RLock()
	records := make([]*subscriberRecord, 0, len(r.records))
	for _, rec := range r.records {
		records = append(records, rec)
	}
	r.mu.RUnlock()

	var result []*model.Subscriber
	for _, rec := range records {
		rec.mu.Lock()
		if rec.sub.IsSubscribed {
			result = append(result, rec.sub.Copy())
		}
		rec.mu.Unlock()
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UserID < result[j].UserID
	})
	return result, nil
}

func (r *subscriberRepository) Get(ctx context.Context, userID types.UserID) (*model.Subscriber, error) {
	rec := r.lookup(userID)
	if rec == nil {
		return nil, nil
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.sub.Copy(), nil
}

func (r *subscriberRepository) SaveDirectChannel(ctx context.Context, userID types.UserID, channelID types.ChannelID) error {
	rec := r.lookup(userID)
	if rec == nil {
		return goerr.Wrap(interfaces.ErrNotFound, "subscriber not found", goerr.V("user_id", userID))
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.sub.DirectChannelID = channelID
	rec.sub.UpdatedAt = time.Now()
	return nil
}
