// Package app wires the reconciliation services together.
package app

import (
	"fmt"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/yukikurage/task-macro-sync/internal/config"
	"github.com/yukikurage/task-macro-sync/internal/database"
	"github.com/yukikurage/task-macro-sync/internal/events"
	"github.com/yukikurage/task-macro-sync/internal/logging"
	"github.com/yukikurage/task-macro-sync/internal/repository"
	"github.com/yukikurage/task-macro-sync/internal/services"
)

// App is the entry point for document and task operations. Callers go
// through App instead of building services themselves, so every save runs
// with both synchronization directions subscribed.
type App struct {
	Documents   *services.DocumentService
	Tasks       *services.TaskService
	Permissions *services.PermissionService

	Generator  *services.ReferenceGenerator
	Counter    *services.TaskCounter
	Processor  *services.BlockProcessor
	Extractor  *services.TaskExtractor
	MacroSync  *services.MacroSync
	RecordSync *services.RecordSync

	Bus    *events.Bus
	Config *config.Config
	DB     *gorm.DB
}

// Open sets up logging, connects to the configured database, migrates it
// and builds the App.
func Open(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Connect(cfg, logging.Component("database"))
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db, logging.Component("migrations")); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return New(cfg, db, zlog.Logger), nil
}

// New builds the App on an open, migrated database.
func New(cfg *config.Config, db *gorm.DB, log zerolog.Logger) *App {
	bus := events.New()
	events.RegisterDebugLogger(bus, log.With().Str("cmp", "bus").Logger())

	taskRepo := repository.NewTaskRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	permRepo := repository.NewPermissionRepository(db)

	permissions := services.NewPermissionService(permRepo, log)
	processor := services.NewBlockProcessor(cfg.Task)
	documents := services.NewDocumentService(docRepo, bus, log)
	tasks := services.NewTaskService(taskRepo, permissions, bus, processor, log)

	// A name is taken when either a document or a task record uses it.
	generator := services.NewReferenceGenerator(permissions, services.AnyExists(documents, tasks), cfg.Task, log)
	counter := services.NewTaskCounter(taskRepo)
	extractor := services.NewTaskExtractor(generator, processor, log)
	macroSync := services.NewMacroSync(extractor, documents, tasks, taskRepo, permissions, processor, log)
	recordSync := services.NewRecordSync(documents, counter, processor, log)

	bus.SubscribeDocumentSaving(macroSync.OnDocumentSaving)
	bus.SubscribeDocumentDeleting(tasks.OnDocumentDeleting)
	bus.SubscribeTaskSaving(recordSync.OnTaskSaving)
	bus.SubscribeTaskDeleting(recordSync.OnTaskDeleting)

	return &App{
		Documents:   documents,
		Tasks:       tasks,
		Permissions: permissions,
		Generator:   generator,
		Counter:     counter,
		Processor:   processor,
		Extractor:   extractor,
		MacroSync:   macroSync,
		RecordSync:  recordSync,
		Bus:         bus,
		Config:      cfg,
		DB:          db,
	}
}

// Close releases the database connection.
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
