package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/babbell/pkg/domain/interfaces"
	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/secmon-lab/babbell/pkg/domain/types"
)

func newCompletedRecord(action string, startedAt time.Time, success, failure int) *model.BroadcastRecord {
	record := model.NewBroadcastRecord(action, newUserID(), startedAt)
	record.Complete(success, failure, startedAt.Add(2*time.Second))
	return record
}

func runSendLogRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("put and get", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		startedAt := time.Now().UTC().Truncate(time.Millisecond)

		record := newCompletedRecord("NOW", startedAt, 3, 1)
		gt.NoError(t, repo.SendLog().Put(ctx, record)).Required()

		got, err := repo.SendLog().Get(ctx, record.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got).NotNil()
		gt.Value(t, got.ID).Equal(record.ID)
		gt.Value(t, got.ActionValue).Equal("NOW")
		gt.Value(t, got.ActorUserID).Equal(record.ActorUserID)
		gt.Number(t, got.TargetCount).Equal(4)
		gt.Number(t, got.SuccessCount).Equal(3)
		gt.Number(t, got.FailureCount).Equal(1)
		gt.Bool(t, got.StartedAt.Equal(startedAt)).True()
		gt.Bool(t, got.CompletedAt.Equal(startedAt.Add(2*time.Second))).True()
	})

	t.Run("get unknown returns nil", func(t *testing.T) {
		repo := newRepo(t)
		got, err := repo.SendLog().Get(context.Background(), types.NewBroadcastID())
		gt.NoError(t, err).Required()
		gt.Value(t, got).Nil()
	})

	t.Run("records are immutable", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		record := newCompletedRecord("SNACK", time.Now().UTC(), 1, 0)
		gt.NoError(t, repo.SendLog().Put(ctx, record)).Required()

		again := *record
		again.Complete(0, 1, record.CompletedAt)
		gt.Error(t, repo.SendLog().Put(ctx, &again)).Is(interfaces.ErrAlreadyExists)

		got, err := repo.SendLog().Get(ctx, record.ID)
		gt.NoError(t, err).Required()
		gt.Number(t, got.SuccessCount).Equal(1)
	})

	t.Run("incomplete record is rejected", func(t *testing.T) {
		repo := newRepo(t)
		record := model.NewBroadcastRecord("NOW", newUserID(), time.Now())
		gt.Value(t, repo.SendLog().Put(context.Background(), record)).NotNil()
	})

	t.Run("empty broadcast is recorded", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		record := newCompletedRecord("CANCEL", time.Now().UTC(), 0, 0)
		gt.NoError(t, repo.SendLog().Put(ctx, record)).Required()

		got, err := repo.SendLog().Get(ctx, record.ID)
		gt.NoError(t, err).Required()
		gt.Number(t, got.TargetCount).Equal(0)
	})

	t.Run("list newest first with limit", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		base := time.Now().UTC().Truncate(time.Millisecond)

		var records []*model.BroadcastRecord
		for i := range 4 {
			r := newCompletedRecord("NOW", base.Add(time.Duration(i)*time.Minute), i, 0)
			gt.NoError(t, repo.SendLog().Put(ctx, r)).Required()
			records = append(records, r)
		}

		list, err := repo.SendLog().List(ctx, 3)
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(3)
		gt.Value(t, list[0].ID).Equal(records[3].ID)
		gt.Value(t, list[1].ID).Equal(records[2].ID)
		gt.Value(t, list[2].ID).Equal(records[1].ID)
	})

	t.Run("list rejects non-positive limit", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.SendLog().List(context.Background(), 0)
		gt.Value(t, err).NotNil()
	})
}
