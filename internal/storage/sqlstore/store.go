// Package sqlstore persists a storage.State in the model_meta and activities
// tables. The sqlite and postgres backends differ only in how they open a
// connection.
package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/julianstephens/activitytracker/internal/migration"
	"github.com/julianstephens/activitytracker/internal/models"
	"github.com/julianstephens/activitytracker/internal/storage"

	apperrors "github.com/julianstephens/activitytracker/internal/errors"
)

// Opener connects to the database named by location and brings its schema up to date
type Opener func(location string) (*sql.DB, error)

// Store is a storage.Model backed by a SQL database
type Store struct {
	*storage.State
	dialect  migration.Dialect
	location string
	open     Opener
	db       *sql.DB
}

var _ storage.Model = (*Store)(nil)

// New wraps state. The connection is opened lazily on first Save or Load.
func New(state *storage.State, dialect migration.Dialect, location string, open Opener) *Store {
	return &Store{
		State:    state,
		dialect:  dialect,
		location: location,
		open:     open,
	}
}

// Location returns the path or connection string of the primary database
func (s *Store) Location() string { return s.location }

// Dialect returns the SQL flavour spoken by the store
func (s *Store) Dialect() migration.Dialect { return s.dialect }

// DB returns the primary connection, opening it if needed
func (s *Store) DB() (*sql.DB, error) {
	if s.db != nil {
		return s.db, nil
	}
	db, err := s.open(s.location)
	if err != nil {
		return nil, err
	}
	s.db = db
	return db, nil
}

// Save replaces the stored aggregate inside one transaction
func (s *Store) Save(uri string) error {
	db, done, err := s.connect(uri)
	if err != nil {
		return err
	}
	defer done()

	if err := WriteSnapshot(db, s.dialect, s.Snapshot()); err != nil {
		return err
	}
	s.Logger().Debug("model saved", "dialect", s.dialect, "entries", s.Len())
	return nil
}

// Load replaces the in-memory aggregate with the stored one
func (s *Store) Load(uri string) error {
	db, done, err := s.connect(uri)
	if err != nil {
		return err
	}
	defer done()

	snap, err := ReadSnapshot(db)
	if err != nil {
		return err
	}
	if err := s.Replace(snap); err != nil {
		return err
	}
	s.Logger().Debug("model loaded", "dialect", s.dialect, "entries", s.Len())
	return nil
}

// Close releases the primary connection
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// connect returns the primary connection for "" or the store's own
// location, and a short-lived one for any other uri.
func (s *Store) connect(uri string) (*sql.DB, func(), error) {
	if uri == "" || uri == s.location {
		db, err := s.DB()
		return db, func() {}, err
	}
	db, err := s.open(uri)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = db.Close() }, nil
}

// WriteSnapshot replaces every row of both tables with snap
func WriteSnapshot(db *sql.DB, dialect migration.Dialect, snap storage.Snapshot) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM activities"); err != nil {
		return fmt.Errorf("failed to clear activities: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM model_meta"); err != nil {
		return fmt.Errorf("failed to clear model metadata: %w", err)
	}
	_, err = tx.Exec(dialect.Rebind(`
		INSERT INTO model_meta (id, owner_label, created_at, modified_at, modified_by, store_uri)
		VALUES (1, ?, ?, ?, ?, ?)`),
		snap.OwnerLabel, snap.CreatedAt, snap.ModifiedAt, snap.ModifiedBy, snap.StoreURI)
	if err != nil {
		return fmt.Errorf("failed to write model metadata: %w", err)
	}

	stmt, err := tx.Prepare(dialect.Rebind(`
		INSERT INTO activities (position, id, start_at, stop_at, activity, notes)
		VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare activity insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range snap.Entries {
		if _, err := stmt.Exec(i, e.ID(), e.Start(), e.Stop(), e.Activity(), e.Notes()); err != nil {
			return fmt.Errorf("failed to write activity %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// ReadSnapshot loads both tables. A store without metadata was never saved
// and is reported as a malformed document.
func ReadSnapshot(db *sql.DB) (storage.Snapshot, error) {
	var snap storage.Snapshot
	err := db.QueryRow(`
		SELECT owner_label, created_at, modified_at, modified_by, store_uri
		FROM model_meta WHERE id = 1`).
		Scan(&snap.OwnerLabel, &snap.CreatedAt, &snap.ModifiedAt, &snap.ModifiedBy, &snap.StoreURI)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Snapshot{}, apperrors.MalformedDocument("store has no model metadata; run init first")
	}
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("failed to read model metadata: %w", err)
	}

	rows, err := db.Query(`
		SELECT id, start_at, stop_at, activity, notes
		FROM activities ORDER BY position`)
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("failed to read activities: %w", err)
	}
	defer rows.Close()

	snap.Entries = []models.ActivityEntry{}
	for rows.Next() {
		var in models.EntryInput
		if err := rows.Scan(&in.ID, &in.Start, &in.Stop, &in.Activity, &in.Notes); err != nil {
			return storage.Snapshot{}, fmt.Errorf("failed to scan activity: %w", err)
		}
		if in.Start == "" || in.Stop == "" {
			return storage.Snapshot{}, apperrors.MalformedDocument("activity %s has an empty timestamp", in.ID)
		}
		entry, err := models.NewActivityEntry(in)
		if err != nil {
			return storage.Snapshot{}, apperrors.MalformedDocument("activity %s: %v", in.ID, err)
		}
		snap.Entries = append(snap.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return storage.Snapshot{}, fmt.Errorf("failed to read activities: %w", err)
	}
	return snap, nil
}
