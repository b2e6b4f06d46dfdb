// Package sqlite implements deuxgo's store interfaces
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "modernc.org/sqlite"

	"deuxgo"
)

type database struct {
	conn *sql.DB
}

var _ deuxgo.Database = (*database)(nil)

func Open(url string) (*database, error) {
	conn, err := sql.Open("sqlite", url)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps writes serialized; the mutation path and
	// the replay path share this database.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &database{
		conn: conn,
	}, nil
}

func (db *database) Migrate(migrations embed.FS) error {
	src, err := iofs.New(migrations, "sql")
	if err != nil {
		return err
	}
	d, err := migratesqlite.WithInstance(db.conn, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", d)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (db *database) Conn() *sql.DB {
	return db.conn
}

func (db *database) Close() error {
	return db.conn.Close()
}
