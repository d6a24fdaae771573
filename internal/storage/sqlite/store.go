package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"

	"github.com/julianstephens/activitytracker/internal/logger"
	"github.com/julianstephens/activitytracker/internal/migration"
	"github.com/julianstephens/activitytracker/internal/storage"
	"github.com/julianstephens/activitytracker/internal/storage/sqlstore"
	"github.com/julianstephens/activitytracker/migrations"
)

// DefaultPath is used when no database file is named
const DefaultPath = "activities.db"

// IsPath reports whether uri names a SQLite database file
func IsPath(uri string) bool {
	switch strings.ToLower(filepath.Ext(uri)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// NewStore returns a model persisted in the SQLite database at opts.StoreURI
func NewStore(opts storage.Options) (*sqlstore.Store, error) {
	if opts.StoreURI == "" {
		opts.StoreURI = DefaultPath
	}
	state, err := storage.NewState(opts)
	if err != nil {
		return nil, err
	}
	l := state.Logger()
	return sqlstore.New(state, migration.SQLite, state.StoreURI(), func(path string) (*sql.DB, error) {
		return Open(path, l)
	}), nil
}

// Open creates the database file if needed and applies pending migrations
func Open(path string, l *log.Logger) (*sql.DB, error) {
	l = logger.OrDiscard(l)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := Migrate(db, l); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the embedded SQLite migrations to db
func Migrate(db *sql.DB, l *log.Logger) error {
	sub, err := migrations.For(string(migration.SQLite))
	if err != nil {
		return fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	if _, err := migration.NewRunner(db, sub, migration.SQLite, l).Apply(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// TableExists reports whether name is a table in db, ignoring case as SQLite does
func TableExists(db *sql.DB, name string) (bool, error) {
	var count int
	row := db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type='table' AND name COLLATE NOCASE = ?", name)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
