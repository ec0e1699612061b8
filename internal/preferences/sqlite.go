package preferences

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/life-quote-server/internal/domain"
)

// SQLiteStore implements the preference store on SQLite. Suited to
// single-node deployments where preferences are the only mutable state.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite preference store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS carrier_preferences (
		location_id TEXT PRIMARY KEY,
		term_preferences TEXT NOT NULL DEFAULT '{}',
		fex_preferences TEXT NOT NULL DEFAULT '{}',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_preferences_updated_at ON carrier_preferences(updated_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Get retrieves the preference document for a location. Missing locations
// return domain.ErrNotFound; callers treat that as all carriers visible.
func (s *SQLiteStore) Get(ctx context.Context, locationID string) (*domain.CarrierPreferences, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT location_id, term_preferences, fex_preferences, updated_at
		FROM carrier_preferences
		WHERE location_id = ?
		LIMIT 1
	`, locationID)

	prefs, err := scanPreferences(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return prefs, nil
}

// Put stores or replaces a location's preference document.
func (s *SQLiteStore) Put(ctx context.Context, prefs *domain.CarrierPreferences) error {
	termJSON, fexJSON, err := marshalMasks(prefs)
	if err != nil {
		return err
	}
	now := time.Now()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO carrier_preferences (location_id, term_preferences, fex_preferences, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(location_id) DO UPDATE SET
			term_preferences = excluded.term_preferences,
			fex_preferences = excluded.fex_preferences,
			updated_at = excluded.updated_at
	`, prefs.LocationID, termJSON, fexJSON, now)
	if err != nil {
		return fmt.Errorf("failed to upsert: %w", err)
	}

	prefs.UpdatedAt = now
	return nil
}

// Delete removes a location's preference document.
func (s *SQLiteStore) Delete(ctx context.Context, locationID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM carrier_preferences WHERE location_id = ?", locationID)
	return err
}

// Count returns the number of locations with stored preferences.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM carrier_preferences").Scan(&count)
	return count, err
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanPreferences scans a row into a CarrierPreferences document.
func scanPreferences(s scanner) (*domain.CarrierPreferences, error) {
	prefs := &domain.CarrierPreferences{}
	var termJSON, fexJSON string

	if err := s.Scan(&prefs.LocationID, &termJSON, &fexJSON, &prefs.UpdatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(termJSON), &prefs.Term); err != nil {
		return nil, fmt.Errorf("failed to decode term preferences: %w", err)
	}
	if err := json.Unmarshal([]byte(fexJSON), &prefs.FEX); err != nil {
		return nil, fmt.Errorf("failed to decode fex preferences: %w", err)
	}
	return prefs, nil
}

// marshalMasks encodes both masks for storage.
func marshalMasks(prefs *domain.CarrierPreferences) (string, string, error) {
	if prefs == nil || prefs.LocationID == "" {
		return "", "", fmt.Errorf("location id is required")
	}

	term := prefs.Term
	if term == nil {
		term = domain.PreferenceMask{}
	}
	fex := prefs.FEX
	if fex == nil {
		fex = domain.PreferenceMask{}
	}

	termJSON, err := json.Marshal(term)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode term preferences: %w", err)
	}
	fexJSON, err := json.Marshal(fex)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode fex preferences: %w", err)
	}
	return string(termJSON), string(fexJSON), nil
}
