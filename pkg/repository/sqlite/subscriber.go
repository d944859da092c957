package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/domain/interfaces"
	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/secmon-lab/babbell/pkg/domain/types"
)

type subscriberRepository struct {
	db *sql.DB
}

var _ interfaces.SubscriberRepository = &subscriberRepository{}

const selectSubscriber = `SELECT user_id, display_name, dm_channel_id, is_subscribed, created_at, updated_at FROM users`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscriber(row rowScanner) (*model.Subscriber, error) {
	var (
		userID, displayName  string
		channelID            sql.NullString
		subscribed           int
		createdAt, updatedAt int64
	)
	if err := row.Scan(&userID, &displayName, &channelID, &subscribed, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return &model.Subscriber{
		UserID:          types.UserID(userID),
		DisplayName:     displayName,
		DirectChannelID: types.ChannelID(channelID.String),
		IsSubscribed:    subscribed != 0,
		CreatedAt:       fromUnix(createdAt),
		UpdatedAt:       fromUnix(updatedAt),
	}, nil
}

func (r *subscriberRepository) UpsertOnContact(ctx context.Context, contact model.Contact) (*model.Subscriber, bool, error) {
	if err := contact.UserID.Validate(); err != nil {
		return nil, false, goerr.Wrap(err, "invalid contact")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var wasSubscribed bool
	var prev int
	err = tx.QueryRowContext(ctx, `SELECT is_subscribed FROM users WHERE user_id = ?`, string(contact.UserID)).Scan(&prev)
	switch {
	case err == nil:
		wasSubscribed = prev != 0
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, false, goerr.Wrap(err, "failed to read subscriber", goerr.V("user_id", contact.UserID))
	}

	now := toUnix(time.Now())
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users(user_id, display_name, dm_channel_id, is_subscribed, created_at, updated_at)
		 VALUES(?,?,?,1,?,?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   display_name = CASE WHEN excluded.display_name <> '' THEN excluded.display_name ELSE users.display_name END,
		   dm_channel_id = COALESCE(excluded.dm_channel_id, users.dm_channel_id),
		   is_subscribed = 1,
		   updated_at = excluded.updated_at`,
		string(contact.UserID), contact.DisplayName, nullStr(string(contact.ChannelID)), now, now,
	)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to upsert subscriber", goerr.V("user_id", contact.UserID))
	}

	sub, err := scanSubscriber(tx.QueryRowContext(ctx, selectSubscriber+` WHERE user_id = ?`, string(contact.UserID)))
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to read upserted subscriber", goerr.V("user_id", contact.UserID))
	}

	if err := tx.Commit(); err != nil {
		return nil, false, goerr.Wrap(err, "failed to commit upsert", goerr.V("user_id", contact.UserID))
	}
	return sub, wasSubscribed, nil
}

func (r *subscriberRepository) Unsubscribe(ctx context.Context, userID types.UserID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_subscribed = 0, updated_at = ? WHERE user_id = ?`,
		toUnix(time.Now()), string(userID),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to unsubscribe", goerr.V("user_id", userID))
	}
	return nil
}

func (r *subscriberRepository) ListSubscribed(ctx context.Context) ([]*model.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx, selectSubscriber+` WHERE is_subscribed = 1 ORDER BY user_id`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list subscribers")
	}
	defer func() { _ = rows.Close() }()

	var result []*model.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan subscriber")
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate subscribers")
	}
	return result, nil
}

func (r *subscriberRepository) Get(ctx context.Context, userID types.UserID) (*model.Subscriber, error) {
	sub, err := scanSubscriber(r.db.QueryRowContext(ctx, selectSubscriber+` WHERE user_id = ?`, string(userID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get subscriber", goerr.V("user_id", userID))
	}
	return sub, nil
}

func (r *subscriberRepository) SaveDirectChannel(ctx context.Context, userID types.UserID, channelID types.ChannelID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET dm_channel_id = ?, updated_at = ? WHERE user_id = ?`,
		nullStr(string(channelID)), toUnix(time.Now()), string(userID),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to save direct channel", goerr.V("user_id", userID))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to get affected rows", goerr.V("user_id", userID))
	}
	if n == 0 {
		return goerr.Wrap(interfaces.ErrNotFound, "subscriber not found", goerr.V("user_id", userID))
	}
	return nil
}
