package preferences

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/life-quote-server/internal/domain"
)

// PostgresStore implements the preference store on PostgreSQL, for
// deployments where several quoting instances share one database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL preference store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL preference store from a
// connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Get retrieves the preference document for a location. Missing locations
// return domain.ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, locationID string) (*domain.CarrierPreferences, error) {
	query := `
		SELECT location_id, term_preferences, fex_preferences, updated_at
		FROM carrier_preferences
		WHERE location_id = $1
		LIMIT 1
	`

	prefs, err := scanPreferences(s.db.QueryRowContext(ctx, query, locationID))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return prefs, nil
}

// Put stores or replaces a location's preference document.
func (s *PostgresStore) Put(ctx context.Context, prefs *domain.CarrierPreferences) error {
	termJSON, fexJSON, err := marshalMasks(prefs)
	if err != nil {
		return err
	}
	now := time.Now()

	query := `
		INSERT INTO carrier_preferences (location_id, term_preferences, fex_preferences, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (location_id) DO UPDATE SET
			term_preferences = EXCLUDED.term_preferences,
			fex_preferences = EXCLUDED.fex_preferences,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, prefs.LocationID, termJSON, fexJSON, now); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}

	prefs.UpdatedAt = now
	return nil
}

// Delete removes a location's preference document.
func (s *PostgresStore) Delete(ctx context.Context, locationID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM carrier_preferences WHERE location_id = $1", locationID); err != nil {
		return fmt.Errorf("failed to delete preferences: %w", err)
	}
	return nil
}

// Count returns the number of locations with stored preferences.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM carrier_preferences").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count preferences: %w", err)
	}
	return count, nil
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
