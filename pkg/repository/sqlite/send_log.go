package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/domain/interfaces"
	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/secmon-lab/babbell/pkg/domain/types"
)

type sendLogRepository struct {
	db *sql.DB
}

var _ interfaces.SendLogRepository = &sendLogRepository{}

const selectSendLog = `SELECT broadcast_id, action_value, actor_user_id, target_count, success_count, failure_count, started_at, completed_at FROM send_log`

func scanSendLog(row rowScanner) (*model.BroadcastRecord, error) {
	var (
		id, action, actor      string
		target, success, fail  int
		startedAt, completedAt int64
	)
	if err := row.Scan(&id, &action, &actor, &target, &success, &fail, &startedAt, &completedAt); err != nil {
		return nil, err
	}
	return &model.BroadcastRecord{
		ID:           types.BroadcastID(id),
		ActionValue:  action,
		ActorUserID:  types.UserID(actor),
		TargetCount:  target,
		SuccessCount: success,
		FailureCount: fail,
		StartedAt:    fromUnix(startedAt),
		CompletedAt:  fromUnix(completedAt),
	}, nil
}

func (r *sendLogRepository) Put(ctx context.Context, record *model.BroadcastRecord) error {
	if record == nil {
		return goerr.New("broadcast record is nil")
	}
	if err := record.Validate(); err != nil {
		return goerr.Wrap(err, "invalid broadcast record")
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO send_log(broadcast_id, action_value, actor_user_id, target_count, success_count, failure_count, started_at, completed_at)
		 VALUES(?,?,?,?,?,?,?,?)
		 ON CONFLICT(broadcast_id) DO NOTHING`,
		string(record.ID), record.ActionValue, string(record.ActorUserID),
		record.TargetCount, record.SuccessCount, record.FailureCount,
		toUnix(record.StartedAt), toUnix(record.CompletedAt),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to put broadcast record", goerr.V("broadcast_id", record.ID))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to get affected rows", goerr.V("broadcast_id", record.ID))
	}
	if n == 0 {
		return goerr.Wrap(interfaces.ErrAlreadyExists, "broadcast record already exists", goerr.V("broadcast_id", record.ID))
	}
	return nil
}

func (r *sendLogRepository) Get(ctx context.Context, id types.BroadcastID) (*model.BroadcastRecord, error) {
	record, err := scanSendLog(r.db.QueryRowContext(ctx, selectSendLog+` WHERE broadcast_id = ?`, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get broadcast record", goerr.V("broadcast_id", id))
	}
	return record, nil
}

func (r *sendLogRepository) List(ctx context.Context, limit int) ([]*model.BroadcastRecord, error) {
	if limit <= 0 {
		return nil, goerr.New("limit must be positive", goerr.V("limit", limit))
	}

	rows, err := r.db.QueryContext(ctx, selectSendLog+` ORDER BY started_at DESC, broadcast_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list broadcast records")
	}
	defer func() { _ = rows.Close() }()

	var result []*model.BroadcastRecord
	for rows.Next() {
		record, err := scanSendLog(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan broadcast record")
		}
		result = append(result, record)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate broadcast records")
	}
	return result, nil
}
