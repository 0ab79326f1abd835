// Package sqlite implements calygo's repositories on modernc sqlite.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/calygofire/calygo"

	_ "modernc.org/sqlite"
)

// Migrations holds the schema shared by the client and the sync server.
//
//go:embed migrations/*.sql
var Migrations embed.FS

type database struct {
	conn *sql.DB
}

var _ calygo.Database = (*database)(nil)

// Open opens the database file at path, creating its directory if needed.
func Open(path string) (*database, error) {
	if path == "" {
		return nil, fmt.Errorf("provide database path: %w", calygo.ErrInvalid)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o744); err != nil {
		return nil, fmt.Errorf("failed to create database dir: %w", err)
	}

	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "foreign_keys(1)")
	conn, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	return &database{
		conn: conn,
	}, nil
}

func (db *database) DB() *sql.DB {
	return db.conn
}

// Migrate applies every pending up migration found under "migrations" in
// migrations.
func (db *database) Migrate(migrations fs.FS) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
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

func (db *database) Close() error {
	return db.conn.Close()
}
