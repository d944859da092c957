package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/domain/types"
)

// BroadcastRecord is the audit summary of one broadcast. It is created when
// the broadcast starts and persisted once, after Complete.
type BroadcastRecord struct {
	ID           types.BroadcastID
	ActionValue  string
	ActorUserID  types.UserID
	TargetCount  int
	SuccessCount int
	FailureCount int
	StartedAt    time.Time
	CompletedAt  time.Time
}

// NewBroadcastRecord starts a record with a fresh ID
func NewBroadcastRecord(actionValue string, actor types.UserID, startedAt time.Time) *BroadcastRecord {
	return &BroadcastRecord{
		ID:          types.NewBroadcastID(),
		ActionValue: actionValue,
		ActorUserID: actor,
		StartedAt:   startedAt,
	}
}

// Complete finalizes the counts
func (x *BroadcastRecord) Complete(success, failure int, completedAt time.Time) {
	x.SuccessCount = success
	x.FailureCount = failure
	x.TargetCount = success + failure
	x.CompletedAt = completedAt
}

// IsCompleted reports whether Complete has been called
func (x *BroadcastRecord) IsCompleted() bool {
	return !x.CompletedAt.IsZero()
}

// HasFailures reports whether at least one delivery failed
func (x *BroadcastRecord) HasFailures() bool {
	return x.FailureCount > 0
}

// Validate checks that the record is complete and its counts add up
func (x *BroadcastRecord) Validate() error {
	if err := x.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid broadcast record ID")
	}
	if x.ActionValue == "" {
		return goerr.New("action value is required", goerr.V("broadcast_id", x.ID))
	}
	if x.ActorUserID == "" {
		return goerr.New("actor user ID is required", goerr.V("broadcast_id", x.ID))
	}
	if x.SuccessCount < 0 || x.FailureCount < 0 {
		return goerr.New("counts must not be negative",
			goerr.V("broadcast_id", x.ID),
			goerr.V("success", x.SuccessCount),
			goerr.V("failure", x.FailureCount))
	}
	if x.SuccessCount+x.FailureCount != x.TargetCount {
		return goerr.New("success and failure counts do not add up to target count",
			goerr.V("broadcast_id", x.ID),
			goerr.V("target", x.TargetCount),
			goerr.V("success", x.SuccessCount),
			goerr.V("failure", x.FailureCount))
	}
	if !x.IsCompleted() {
		return goerr.New("broadcast record is not completed", goerr.V("broadcast_id", x.ID))
	}
	if x.CompletedAt.Before(x.StartedAt) {
		return goerr.New("completed_at is before started_at",
			goerr.V("broadcast_id", x.ID),
			goerr.V("started_at", x.StartedAt),
			goerr.V("completed_at", x.CompletedAt))
	}
	return nil
}
