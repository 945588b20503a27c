package app

import (
	"context"
	"sync"

	"crudgomodule/internal/config"
	"crudgomodule/internal/person"
	"crudgomodule/internal/runner"
	"crudgomodule/shared/docstore"
	"crudgomodule/shared/logging"
)

// Application represents the main application instance that holds configuration and dependencies
type Application struct {
	rawconfig  *config.RawConfig
	logger     logging.Logger
	store      docstore.DocStore
	repository *person.Repository
	sequencer  *runner.Sequencer
	mutex      sync.RWMutex
	closeOnce  sync.Once
	closeErr   error
}

// NewApplication connects to the configured store and wires the person
// repository and run sequencer on top of it. A *docstore.ConnectionError is
// returned when the store cannot be reached.
func NewApplication(ctx context.Context, cfg *config.RawConfig, logger logging.Logger) (*Application, error) {
	logger.Infow("Connecting to document store", "backend", cfg.Store.Backend)
	store, err := docstore.Connect(ctx, cfg.Store.ConvertToStoreConfig())
	if err != nil {
		logger.Errorw("Failed to connect to document store", "error", err)
		return nil, err
	}
	logger.Info("Document store connected")

	return newApplication(cfg, logger, store), nil
}

func newApplication(cfg *config.RawConfig, logger logging.Logger, store docstore.DocStore) *Application {
	repository := person.NewRepository(store, cfg.Store.ConvertToRepositoryConfig(), logger.WithField("component", "person"))
	return &Application{
		rawconfig:  cfg,
		logger:     logger,
		store:      store,
		repository: repository,
		sequencer:  runner.NewSequencer(logger.WithField("component", "runner")),
	}
}

// Config returns the application configuration
func (app *Application) Config() *config.RawConfig {
	app.mutex.RLock()
	defer app.mutex.RUnlock()
	return app.rawconfig
}

// Logger returns the application logger
func (app *Application) Logger() logging.Logger {
	app.mutex.RLock()
	defer app.mutex.RUnlock()
	return app.logger
}

// Repository returns the person repository
func (app *Application) Repository() *person.Repository {
	app.mutex.RLock()
	defer app.mutex.RUnlock()
	return app.repository
}

// Run executes the demonstration script against the store
func (app *Application) Run(ctx context.Context) *runner.Report {
	app.logger.Info("Running person operations...")
	steps := runner.DefaultScript(app.repository, app.rawconfig.Run.ConvertToScriptIDs())
	report := app.sequencer.Run(ctx, steps)

	if summary, err := report.JSON(); err != nil {
		app.logger.Warnw("Failed to render run report", "error", err)
	} else {
		app.logger.Infow("Run report", "report", string(summary))
	}
	return report
}

// Shutdown closes the store connection. Calling it more than once is safe.
func (app *Application) Shutdown() error {
	app.closeOnce.Do(func() {
		app.logger.Info("Closing document store connection...")
		if err := app.store.Close(); err != nil {
			app.logger.Errorw("Error closing document store", "error", err)
			app.closeErr = err
			return
		}
		app.logger.Info("Document store connection closed")
	})
	return app.closeErr
}
