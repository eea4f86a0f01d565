package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

// schemaName identifies this module's migration set in migrate's own records
const schemaName = "vc_agents"

// Migrate brings the funding-data schema (organizations, deals, people,
// roles, evidence, runs, intros) up to date from the embedded SQL files
func Migrate(db *DB) error {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	source, err := iofs.New(schemaFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read embedded schema: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, schemaName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply schema migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		slog.Warn("Schema version is dirty, manual repair needed", "schema", schemaName, "version", version)
	} else {
		slog.Info("Schema up to date", "schema", schemaName, "version", version)
	}

	return nil
}
