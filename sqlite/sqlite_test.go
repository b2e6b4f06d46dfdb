package sqlite

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/Thiht/transactor/stdlib"

	"deuxgo"
	"deuxgo/charmlog"
	"deuxgo/migrations"
)

func setupTestDB(t *testing.T) (deuxgo.TodoStore, deuxgo.OpQueue) {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(migrations.FS); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	_, dbGetter := stdlib.NewTransactor(db.Conn(), stdlib.NestedTransactionsSavepoints)
	logger := charmlog.NewLogger(charmlog.Options{Writer: io.Discard})
	return NewTodoStore(dbGetter, logger), NewOpQueue(dbGetter, logger)
}
