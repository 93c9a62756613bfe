// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yukikurage/task-macro-sync/internal/database"
)

// NewDB opens a migrated in-memory SQLite database that is closed when the
// test ends. A single connection keeps every query on the same memory
// database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db, zerolog.Nop()))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}
