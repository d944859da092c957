package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/babbell/pkg/domain/interfaces"
	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/secmon-lab/babbell/pkg/domain/types"
)

func contactOf(userID types.UserID, name string, channelID types.ChannelID) model.Contact {
	return model.Contact{UserID: userID, DisplayName: name, ChannelID: channelID}
}

func runSubscriberRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("first contact subscribes", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		sub, wasSubscribed, err := repo.Subscriber().UpsertOnContact(ctx, contactOf(userID, "alice", "D0001"))
		gt.NoError(t, err).Required()
		gt.Bool(t, wasSubscribed).False()
		gt.Value(t, sub.UserID).Equal(userID)
		gt.Value(t, sub.DisplayName).Equal("alice")
		gt.Value(t, sub.DirectChannelID).Equal(types.ChannelID("D0001"))
		gt.Bool(t, sub.IsSubscribed).True()
		gt.Bool(t, sub.CreatedAt.IsZero()).False()

		got, err := repo.Subscriber().Get(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Value(t, got).NotNil()
		gt.Bool(t, got.IsSubscribed).True()
	})

	t.Run("second contact reports prior subscription", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		_, _, err := repo.Subscriber().UpsertOnContact(ctx, contactOf(userID, "alice", "D0001"))
		gt.NoError(t, err).Required()

		_, wasSubscribed, err := repo.Subscriber().UpsertOnContact(ctx, contactOf(userID, "alice", "D0001"))
		gt.NoError(t, err).Required()
		gt.Bool(t, wasSubscribed).True()
	})

	t.Run("empty fields keep cached values", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		_, _, err := repo.Subscriber().UpsertOnContact(ctx, contactOf(userID, "alice", "D0001"))
		gt.NoError(t, err).Required()

		sub, _, err := repo.Subscriber().UpsertOnContact(ctx, contactOf(userID, "", ""))
		gt.NoError(t, err).Required()
		gt.Value(t, sub.DisplayName).Equal("alice")
		gt.Value(t, sub.DirectChannelID).Equal(types.ChannelID("D0001"))
	})

	t.Run("new channel replaces cached channel", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		_, _, err := repo.Subscriber().UpsertOnContact(ctx, contactOf(userID, "alice", "D0001"))
		gt.NoError(t, err).Required()

		sub, _, err := repo.Subscriber().UpsertOnContact(ctx, contactOf(userID, "alice", "D0002"))
		gt.NoError(t, err).Required()
		gt.Value(t, sub.DirectChannelID).Equal(types.ChannelID("D0002"))
	})

	t.Run("unsubscribe then resubscribe", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		_, _, err := repo.Subscriber().UpsertOnContact(ctx, contactOf(userID, "alice", "D0001"))
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Subscriber().Unsubscribe(ctx, userID)).Required()

		got, err := repo.Subscriber().Get(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Bool(t, got.IsSubscribed).False()
		// the DM channel survives opting out
		gt.Value(t, got.DirectChannelID).Equal(types.ChannelID("D0001"))

		list, err := repo.Subscriber().ListSubscribed(ctx)
		gt.NoError(t, err).Required()
		for _, s := range list {
			gt.Value(t, s.UserID).NotEqual(userID)
		}

		sub, wasSubscribed, err := repo.Subscriber().UpsertOnContact(ctx, contactOf(userID, "", ""))
		gt.NoError(t, err).Required()
		gt.Bool(t, wasSubscribed).False()
		gt.Bool(t, sub.IsSubscribed).True()
	})

	t.Run("unsubscribe unknown user is ignored", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		gt.NoError(t, repo.Subscriber().Unsubscribe(ctx, userID))

		got, err := repo.Subscriber().Get(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Value(t, got).Nil()
	})

	t.Run("list subscribed is ordered by user ID", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		ids := []types.UserID{newUserID(), newUserID(), newUserID()}
		// insert out of order
		for _, i := range []int{2, 0, 1} {
			_, _, err := repo.Subscriber().UpsertOnContact(ctx, contactOf(ids[i], "", ""))
			gt.NoError(t, err).Required()
		}
		gt.NoError(t, repo.Subscriber().Unsubscribe(ctx, ids[1])).Required()

		list, err := repo.Subscriber().ListSubscribed(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(2)
		gt.Value(t, list[0].UserID).Equal(ids[0])
		gt.Value(t, list[1].UserID).Equal(ids[2])
	})

	t.Run("save direct channel", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		_, _, err := repo.Subscriber().UpsertOnContact(ctx, contactOf(userID, "alice", ""))
		gt.NoError(t, err).Required()

		gt.NoError(t, repo.Subscriber().SaveDirectChannel(ctx, userID, "D0009")).Required()

		got, err := repo.Subscriber().Get(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.DirectChannelID).Equal(types.ChannelID("D0009"))
	})

	t.Run("save direct channel for unknown user", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.Subscriber().SaveDirectChannel(context.Background(), newUserID(), "D0009")
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("invalid user ID is rejected", func(t *testing.T) {
		repo := newRepo(t)
		_, _, err := repo.Subscriber().UpsertOnContact(context.Background(), contactOf("not-a-user", "", ""))
		gt.Value(t, err).NotNil()
	})

	t.Run("returned subscriber is a copy", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		sub, _, err := repo.Subscriber().UpsertOnContact(ctx, contactOf(userID, "alice", "D0001"))
		gt.NoError(t, err).Required()
		sub.DisplayName = "mallory"

		got, err := repo.Subscriber().Get(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.DisplayName).Equal("alice")
	})

	t.Run("concurrent contacts of the same user", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, wasSubscribed, err := repo.Subscriber().UpsertOnContact(ctx, contactOf(userID, "alice", "D0001"))
				gt.NoError(t, err)
				if !wasSubscribed {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		gt.Number(t, fresh).Equal(1)
	})
}
