package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nhle/planeissues/internal/credential"
	"github.com/nhle/planeissues/internal/logging"
	"github.com/nhle/planeissues/internal/model"
	"github.com/nhle/planeissues/internal/source"
	"github.com/nhle/planeissues/internal/source/plane"
	"github.com/nhle/planeissues/internal/store"
)

// app holds what commands share once flags are parsed.
type app struct {
	configPath string
	verbose    bool

	cfg     *model.AppConfig
	logger  *slog.Logger
	journal store.Store
	closers []func() error

	tracker source.Tracker
}

// newTracker builds the tracker commands talk to; tests swap in a fake.
var newTracker = func(cfg *model.AppConfig, journal store.Store, logger *slog.Logger) source.Tracker {
	return plane.NewAdapter(cfg.Plane, cfg.Upload,
		plane.WithJournal(journal),
		plane.WithLogger(logger),
	)
}

// init loads configuration, sets up logging and opens the upload journal.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := model.LoadConfig(a.configPath)
	if err != nil {
		return fail("Configuration error", err)
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	a.cfg = cfg

	logger, closeLog, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return fail("Logging error", err)
	}
	a.logger = logger
	a.closers = append(a.closers, closeLog)
	slog.SetDefault(logger)

	journal, err := store.NewSQLiteStore(cfg.Journal.Path)
	if err != nil {
		return fail("Journal error", fmt.Errorf("opening upload journal: %w", err))
	}
	a.journal = journal
	a.closers = append(a.closers, journal.Close)

	logger.Debug("configuration loaded",
		"config", a.configPath,
		"workspace", cfg.Plane.WorkspaceSlug,
		"project", cfg.Plane.ProjectID,
		"journal", cfg.Journal.Path,
	)
	return nil
}

// connect returns the tracker, resolving the API key on first use.
func (a *app) connect() (source.Tracker, error) {
	if a.tracker != nil {
		return a.tracker, nil
	}
	if err := a.cfg.Validate(); err != nil {
		return nil, fail("Configuration error", err)
	}

	key, err := credential.ResolveAPIKey(a.cfg.Plane.APIKey)
	if err != nil {
		return nil, fail("Configuration error", err)
	}
	a.cfg.Plane.APIKey = key

	a.tracker = newTracker(a.cfg, a.journal, a.logger)
	return a.tracker, nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
