package deuxgo

import (
	"context"
	"errors"
)

// ErrNotFound is returned by store lookups for rows that do not exist.
var ErrNotFound = errors.New("not found")

// TodoStore is durable CRUD for todo rows. It is the single source of truth
// read by the UI and written by the sync coordinator; both paths serialize
// their writes through it.
type TodoStore interface {
	// SaveTodo upserts a todo row. If serverID is non-zero and a row with
	// that server identity exists, it is updated in place; otherwise if
	// localID is non-zero that row is updated; otherwise a new local-only
	// row is inserted. Returns the row's local id. No identity ever maps
	// to more than one row.
	SaveTodo(ctx context.Context, serverID, localID int64, rec TodoRecord) (int64, error)

	GetByServerID(ctx context.Context, serverID int64) (ExistingTodo, error)
	GetByLocalID(ctx context.Context, localID int64) (ExistingTodo, error)

	// GetByAnyID looks up by server identity first, falling back to local
	// identity, so callers holding a raw id need not know which kind it is.
	GetByAnyID(ctx context.Context, id int64) (ExistingTodo, error)

	// GetRange returns todos with start <= date <= end, ordered by date,
	// then done status, then text. Missing rows are an empty slice.
	GetRange(ctx context.Context, start, end string) ([]ExistingTodo, error)

	DeleteByServerID(ctx context.Context, serverID int64) error
	DeleteByLocalID(ctx context.Context, localID int64) error
	DeleteAll(ctx context.Context) error
}

// OpQueue is the durable, ordered log of not-yet-acknowledged mutations.
type OpQueue interface {
	// Enqueue appends an operation with a fresh increasing id and returns it.
	Enqueue(ctx context.Context, op OpRecord) (int64, error)

	// Pending returns all queued operations ordered by id ascending
	// (replay order).
	Pending(ctx context.Context) ([]PendingOp, error)

	Remove(ctx context.Context, id int64) error
	IncrementRetry(ctx context.Context, id int64) error

	// ReassignTodoID rewrites todo_id to serverID on every queued operation
	// whose local_todo_id matches and whose todo_id is still unset. The
	// rewrite is a single atomic write; it returns the number of operations
	// reassigned.
	ReassignTodoID(ctx context.Context, localTodoID, serverID int64) (int64, error)

	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}
