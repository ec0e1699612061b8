package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

// Migrator brings the quoting schema up to date: the term and final
// expense rate tables plus the carrier preference table. Migrations are
// plain SQL files applied in order from a source directory.
type Migrator struct {
	m      *migrate.Migrate
	logger *logrus.Logger
}

// NewMigrator opens the migration files in sourceDir against the given
// database URL.
func NewMigrator(databaseURL, sourceDir string, logger *logrus.Logger) (*Migrator, error) {
	m, err := migrate.New("file://"+sourceDir, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening migrations in %s: %w", sourceDir, err)
	}
	return &Migrator{m: m, logger: logger}, nil
}

// Up applies every pending migration. A schema already at the latest
// version is not an error.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mg.logger.Debug("Schema already at latest migration")
			return nil
		}
		return fmt.Errorf("applying migrations: %w", err)
	}
	if version, dirty, err := mg.m.Version(); err == nil {
		mg.logger.WithFields(logrus.Fields{
			"version": version,
			"dirty":   dirty,
		}).Info("Schema migrations applied")
	}
	return nil
}

// Close releases the migration source and its database handle.
func (mg *Migrator) Close() error {
	sourceErr, dbErr := mg.m.Close()
	if sourceErr != nil {
		return fmt.Errorf("closing migration source: %w", sourceErr)
	}
	return dbErr
}
