package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/babbell/pkg/domain/model"
)

func TestBroadcastRecord(t *testing.T) {
	start := time.Date(2026, 3, 2, 11, 50, 0, 0, time.UTC)

	t.Run("complete record is valid", func(t *testing.T) {
		rec := model.NewBroadcastRecord("NOW", "U0ACTOR", start)
		gt.Bool(t, rec.IsCompleted()).False()

		rec.Complete(2, 1, start.Add(3*time.Second))

		gt.Number(t, rec.TargetCount).Equal(3)
		gt.Bool(t, rec.HasFailures()).True()
		gt.NoError(t, rec.Validate())
	})

	t.Run("incomplete record is invalid", func(t *testing.T) {
		rec := model.NewBroadcastRecord("NOW", "U0ACTOR", start)
		gt.Value(t, rec.Validate()).NotNil()
	})

	t.Run("mismatched counts are invalid", func(t *testing.T) {
		rec := model.NewBroadcastRecord("NOW", "U0ACTOR", start)
		rec.Complete(1, 1, start)
		rec.TargetCount = 5
		gt.Value(t, rec.Validate()).NotNil()
	})

	t.Run("completion before start is invalid", func(t *testing.T) {
		rec := model.NewBroadcastRecord("NOW", "U0ACTOR", start)
		rec.Complete(1, 0, start.Add(-time.Second))
		gt.Value(t, rec.Validate()).NotNil()
	})

	t.Run("empty broadcast is valid", func(t *testing.T) {
		rec := model.NewBroadcastRecord("SNACK", "U0ACTOR", start)
		rec.Complete(0, 0, start)
		gt.NoError(t, rec.Validate())
	})

	t.Run("IDs are unique", func(t *testing.T) {
		a := model.NewBroadcastRecord("NOW", "U0ACTOR", start)
		b := model.NewBroadcastRecord("NOW", "U0ACTOR", start)
		gt.Value(t, a.ID).NotEqual(b.ID)
	})
}
