package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	txStdLib "github.com/Thiht/transactor/stdlib"

	"deuxgo"
)

const selectTodos = "SELECT local_id, id, text, done, date, sync_status FROM todos"

type todoEntity struct {
	LocalID    int64
	ServerID   sql.NullInt64
	Text       string
	Done       int
	Date       string
	SyncStatus int
}

// todoStore
type todoStore struct {
	dbGetter txStdLib.DBGetter
	l        deuxgo.Logger
}

var _ deuxgo.TodoStore = (*todoStore)(nil)

func NewTodoStore(dbGetter txStdLib.DBGetter, logger deuxgo.Logger) deuxgo.TodoStore {
	return &todoStore{
		l:        logger,
		dbGetter: dbGetter,
	}
}

func (s *todoStore) SaveTodo(ctx context.Context, serverID, localID int64, rec deuxgo.TodoRecord) (int64, error) {
	db := s.dbGetter(ctx)

	if serverID != 0 {
		existing, err := s.GetByServerID(ctx, serverID)
		switch {
		case err == nil:
			query := "UPDATE todos SET text = ?, done = ?, date = ?, sync_status = ? WHERE id = ?"
			s.l.Debug("updating todo by server id", "query", query, "server_id", serverID)
			if _, err := db.ExecContext(ctx, query, rec.Text, boolToInt(rec.Done), rec.Date, int(rec.SyncStatus), serverID); err != nil {
				return 0, err
			}
			return existing.LocalID, nil
		case errors.Is(err, deuxgo.ErrNotFound):
			query := "INSERT INTO todos (id, text, done, date, sync_status) VALUES (?, ?, ?, ?, ?)"
			s.l.Debug("inserting todo with server id", "query", query, "server_id", serverID)
			result, err := db.ExecContext(ctx, query, serverID, rec.Text, boolToInt(rec.Done), rec.Date, int(rec.SyncStatus))
			if err != nil {
				return 0, err
			}
			return result.LastInsertId()
		default:
			return 0, err
		}
	}

	if localID != 0 {
		query := "UPDATE todos SET text = ?, done = ?, date = ?, sync_status = ? WHERE local_id = ?"
		s.l.Debug("updating todo by local id", "query", query, "local_id", localID)
		if _, err := db.ExecContext(ctx, query, rec.Text, boolToInt(rec.Done), rec.Date, int(rec.SyncStatus), localID); err != nil {
			return 0, err
		}
		return localID, nil
	}

	query := "INSERT INTO todos (text, done, date, sync_status) VALUES (?, ?, ?, ?)"
	s.l.Debug("inserting local-only todo", "query", query)
	result, err := db.ExecContext(ctx, query, rec.Text, boolToInt(rec.Done), rec.Date, int(rec.SyncStatus))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *todoStore) GetByServerID(ctx context.Context, serverID int64) (deuxgo.ExistingTodo, error) {
	if serverID == 0 {
		return deuxgo.ExistingTodo{}, fmt.Errorf("provide serverID")
	}

	db := s.dbGetter(ctx)
	row := db.QueryRowContext(
		ctx,
		fmt.Sprintf("%s WHERE id=?", selectTodos), serverID,
	)

	return extractTodo(row)
}

func (s *todoStore) GetByLocalID(ctx context.Context, localID int64) (deuxgo.ExistingTodo, error) {
	if localID == 0 {
		return deuxgo.ExistingTodo{}, fmt.Errorf("provide localID")
	}

	db := s.dbGetter(ctx)
	row := db.QueryRowContext(
		ctx,
		fmt.Sprintf("%s WHERE local_id=?", selectTodos), localID,
	)

	return extractTodo(row)
}

func (s *todoStore) GetByAnyID(ctx context.Context, id int64) (deuxgo.ExistingTodo, error) {
	todo, err := s.GetByServerID(ctx, id)
	if err == nil {
		return todo, nil
	}
	if !errors.Is(err, deuxgo.ErrNotFound) {
		return deuxgo.ExistingTodo{}, err
	}
	return s.GetByLocalID(ctx, id)
}

func (s *todoStore) GetRange(ctx context.Context, start, end string) ([]deuxgo.ExistingTodo, error) {
	query := fmt.Sprintf("%s WHERE date >= ? AND date <= ? ORDER BY date ASC, done ASC, text ASC", selectTodos)

	db := s.dbGetter(ctx)
	s.l.Debug("GetRange", "query", query, "start", start, "end", end)
	rows, err := db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var todos []deuxgo.ExistingTodo
	for rows.Next() {
		todo, err := extractTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}

	return todos, rows.Err()
}

func (s *todoStore) DeleteByServerID(ctx context.Context, serverID int64) error {
	if serverID == 0 {
		return fmt.Errorf("provide serverID")
	}

	db := s.dbGetter(ctx)
	s.l.Debug("deleting todo", "server_id", serverID)
	_, err := db.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", serverID)
	return err
}

func (s *todoStore) DeleteByLocalID(ctx context.Context, localID int64) error {
	if localID == 0 {
		return fmt.Errorf("provide localID")
	}

	db := s.dbGetter(ctx)
	s.l.Debug("deleting todo", "local_id", localID)
	_, err := db.ExecContext(ctx, "DELETE FROM todos WHERE local_id = ?", localID)
	return err
}

func (s *todoStore) DeleteAll(ctx context.Context) error {
	db := s.dbGetter(ctx)
	_, err := db.ExecContext(ctx, "DELETE FROM todos")
	return err
}

func extractTodo(row scannable) (deuxgo.ExistingTodo, error) {
	var e todoEntity
	if err := row.Scan(&e.LocalID, &e.ServerID, &e.Text, &e.Done, &e.Date, &e.SyncStatus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return deuxgo.ExistingTodo{}, fmt.Errorf("failed to extract todo: %w", deuxgo.ErrNotFound)
		}
		return deuxgo.ExistingTodo{}, err
	}

	return deuxgo.ExistingTodo{
		LocalID:  e.LocalID,
		ServerID: e.ServerID.Int64,
		TodoRecord: deuxgo.TodoRecord{
			Text:       e.Text,
			Done:       e.Done == 1,
			Date:       e.Date,
			SyncStatus: deuxgo.SyncStatus(e.SyncStatus),
		},
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
