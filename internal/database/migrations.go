package database

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/yukikurage/task-macro-sync/internal/models"
)

// Models lists every table managed by Migrate.
var Models = []any{
	&models.Task{},
	&models.Document{},
	&models.DocumentRevision{},
	&models.Permission{},
}

// Migrate creates or updates the schema, then adds the query indexes.
func Migrate(db *gorm.DB, log zerolog.Logger) error {
	log.Info().Msg("running database migrations")
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := AddIndexes(db, log); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}
	log.Info().Msg("database migrations completed")
	return nil
}

// AddIndexes adds the indexes used by task listings and owner lookups.
func AddIndexes(db *gorm.DB, log zerolog.Logger) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Reconciliation lookups
		{"tasks", "idx_tasks_owner", "owner"},
		{"tasks", "idx_tasks_number", "number"},

		// Listing filters
		{"tasks", "idx_tasks_assignee", "assignee"},
		{"tasks", "idx_tasks_status", "status"},
		{"tasks", "idx_tasks_due_date", "due_date"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.table, idx.name) {
			log.Debug().Str("index", idx.name).Msg("index already exists, skipping")
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Debug().Str("index", idx.name).Str("table", idx.table).Msg("created index")
	}

	return nil
}
