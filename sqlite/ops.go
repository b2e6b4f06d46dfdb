package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"

	"deuxgo"
)

const selectOps = "SELECT id, operation_type, todo_id, local_todo_id, payload, timestamp, retry_count FROM pending_operations"

type opEntity struct {
	ID          int64
	Type        string
	TodoID      sql.NullInt64
	LocalTodoID sql.NullInt64
	Payload     string
	Timestamp   int64
	RetryCount  int
}

// opQueue
type opQueue struct {
	dbGetter txStdLib.DBGetter
	l        deuxgo.Logger
}

var _ deuxgo.OpQueue = (*opQueue)(nil)

func NewOpQueue(dbGetter txStdLib.DBGetter, logger deuxgo.Logger) deuxgo.OpQueue {
	return &opQueue{
		l:        logger,
		dbGetter: dbGetter,
	}
}

func (q *opQueue) Enqueue(ctx context.Context, op deuxgo.OpRecord) (int64, error) {
	payload, err := deuxgo.EncodePayload(op.Type, op.Payload)
	if err != nil {
		return 0, err
	}

	db := q.dbGetter(ctx)
	query := "INSERT INTO pending_operations (operation_type, todo_id, local_todo_id, payload, timestamp, retry_count) VALUES (?, ?, ?, ?, ?, 0)"
	q.l.Debug("queueing operation", "query", query, "type", op.Type, "todo_id", op.TodoID, "local_todo_id", op.LocalTodoID, "payload", string(payload))
	result, err := db.ExecContext(
		ctx,
		query,
		string(op.Type), nullableID(op.TodoID), nullableID(op.LocalTodoID), string(payload), time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

func (q *opQueue) Pending(ctx context.Context) ([]deuxgo.PendingOp, error) {
	db := q.dbGetter(ctx)
	rows, err := db.QueryContext(ctx, fmt.Sprintf("%s ORDER BY id ASC", selectOps))
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var ops []deuxgo.PendingOp
	for rows.Next() {
		op, err := extractOp(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	return ops, rows.Err()
}

func (q *opQueue) Remove(ctx context.Context, id int64) error {
	db := q.dbGetter(ctx)
	q.l.Debug("removing operation", "id", id)
	_, err := db.ExecContext(ctx, "DELETE FROM pending_operations WHERE id = ?", id)
	return err
}

func (q *opQueue) IncrementRetry(ctx context.Context, id int64) error {
	db := q.dbGetter(ctx)
	_, err := db.ExecContext(ctx, "UPDATE pending_operations SET retry_count = retry_count + 1 WHERE id = ?", id)
	return err
}

func (q *opQueue) ReassignTodoID(ctx context.Context, localTodoID, serverID int64) (int64, error) {
	if localTodoID == 0 {
		return 0, fmt.Errorf("provide localTodoID")
	}
	if serverID == 0 {
		return 0, fmt.Errorf("provide serverID")
	}

	db := q.dbGetter(ctx)
	query := "UPDATE pending_operations SET todo_id = ? WHERE local_todo_id = ? AND (todo_id IS NULL OR todo_id = 0)"
	q.l.Debug("reassigning operation todo ids", "query", query, "local_todo_id", localTodoID, "server_id", serverID)
	result, err := db.ExecContext(ctx, query, serverID, localTodoID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (q *opQueue) Count(ctx context.Context) (int, error) {
	db := q.dbGetter(ctx)
	row := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pending_operations")

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (q *opQueue) Clear(ctx context.Context) error {
	db := q.dbGetter(ctx)
	_, err := db.ExecContext(ctx, "DELETE FROM pending_operations")
	return err
}

func extractOp(row scannable) (deuxgo.PendingOp, error) {
	var e opEntity
	if err := row.Scan(&e.ID, &e.Type, &e.TodoID, &e.LocalTodoID, &e.Payload, &e.Timestamp, &e.RetryCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return deuxgo.PendingOp{}, fmt.Errorf("failed to extract operation: %w", deuxgo.ErrNotFound)
		}
		return deuxgo.PendingOp{}, err
	}

	payload, err := deuxgo.DecodePayload(deuxgo.OpType(e.Type), []byte(e.Payload))
	if err != nil {
		return deuxgo.PendingOp{}, fmt.Errorf("operation %d: %w", e.ID, err)
	}

	return deuxgo.PendingOp{
		ID:         e.ID,
		Timestamp:  time.UnixMilli(e.Timestamp),
		RetryCount: e.RetryCount,
		OpRecord: deuxgo.OpRecord{
			Type:        deuxgo.OpType(e.Type),
			TodoID:      e.TodoID.Int64,
			LocalTodoID: e.LocalTodoID.Int64,
			Payload:     payload,
		},
	}, nil
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
