package migration

import (
	"fmt"

	appconfig "github.com/loglattice/orchestrator/config"
)

// NewMigratorFromConfig creates a new migrator from application configuration.
func NewMigratorFromConfig(cfg *appconfig.Config) (*DefaultMigrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	return NewMigratorFromURL(cfg.Postgres.DSN())
}

// NewMigratorFromURL creates a new migrator from a Postgres connection string.
func NewMigratorFromURL(dbURL string) (*DefaultMigrator, error) {
	return NewMigrator(&Config{
		DatabaseURL: dbURL,
		TableName:   "schema_migrations",
	})
}
