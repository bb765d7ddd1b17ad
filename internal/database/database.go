package database

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const memoryPath = ":memory:"

type DB struct {
	*sql.DB
}

type Options struct {
	MaxOpenConns int
	BusyTimeout  int // milliseconds
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string, opts ...Options) (*DB, error) {
	o := Options{MaxOpenConns: 4, BusyTimeout: 5000}
	if len(opts) > 0 {
		if opts[0].MaxOpenConns > 0 {
			o.MaxOpenConns = opts[0].MaxOpenConns
		}
		if opts[0].BusyTimeout > 0 {
			o.BusyTimeout = opts[0].BusyTimeout
		}
	}

	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", path, o.BusyTimeout)
	if path != memoryPath {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if path == memoryPath {
		o.MaxOpenConns = 1
	}
	db.SetMaxOpenConns(o.MaxOpenConns)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Migrate applies all pending embedded migrations.
func (db *DB) Migrate() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting migration dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
