package database_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukikurage/task-macro-sync/internal/config"
	"github.com/yukikurage/task-macro-sync/internal/database"
	"github.com/yukikurage/task-macro-sync/internal/models"
	"github.com/yukikurage/task-macro-sync/internal/testutil"
	"github.com/yukikurage/task-macro-sync/internal/utils"
)

func TestMigrate_CreatesIndexes(t *testing.T) {
	db := testutil.NewDB(t)

	for _, name := range []string{"idx_tasks_owner", "idx_tasks_number", "idx_tasks_due_date"} {
		assert.True(t, db.Migrator().HasIndex("tasks", name), name)
	}

	// Running again skips the existing indexes.
	require.NoError(t, database.Migrate(db, zerolog.Nop()))
}

func TestPaginate(t *testing.T) {
	db := testutil.NewDB(t)

	for _, ref := range []string{"A.Task_0", "A.Task_1", "A.Task_2", "A.Task_3", "A.Task_4"} {
		require.NoError(t, db.Create(&models.Task{Reference: ref}).Error)
	}

	var page []models.Task
	err := db.Scopes(database.Paginate(utils.NewPaginationParams(2, 2))).
		Order("reference").Find(&page).Error
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "A.Task_2", page[0].Reference)
	assert.Equal(t, "A.Task_3", page[1].Reference)
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{config.DriverSQLite, config.DriverPostgres, config.DriverMySQL} {
		cfg := config.Load()
		cfg.DBDriver = driver
		d, err := database.Dialector(cfg)
		require.NoError(t, err, driver)
		assert.Equal(t, driver, d.Name())
	}

	cfg := config.Load()
	cfg.DBDriver = "oracle"
	_, err := database.Dialector(cfg)
	assert.Error(t, err)
}

func TestConnect_SQLite(t *testing.T) {
	cfg := config.Load()
	cfg.DBDriver = config.DriverSQLite
	cfg.DBPath = ":memory:"

	db, err := database.Connect(cfg, zerolog.Nop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	assert.NoError(t, sqlDB.Ping())
}
