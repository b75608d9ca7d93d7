package main

import (
	"fmt"

	"github.com/alexisbeaulieu97/synthevents/internal/config"
	"github.com/alexisbeaulieu97/synthevents/internal/executor"
	"github.com/alexisbeaulieu97/synthevents/internal/history"
	"github.com/alexisbeaulieu97/synthevents/internal/logger"
	"github.com/alexisbeaulieu97/synthevents/internal/progress"
	"github.com/alexisbeaulieu97/synthevents/internal/server"
	"github.com/alexisbeaulieu97/synthevents/internal/storage"
	"github.com/alexisbeaulieu97/synthevents/internal/tracker"
)

// appContext carries the wired application services shared by the serve
// and run commands.
type appContext struct {
	cfg       *config.Config
	log       *logger.Logger
	scenarios *storage.ScenarioStore
	settings  *storage.SettingsStore
	history   *history.Store
	tracker   *tracker.Tracker
	resolver  *progress.Resolver
	executor  *executor.Executor
}

// newAppContext performs the startup check and builds every service: it
// bootstraps the storage directory, seeds default settings when absent,
// and hydrates the tracker from the durable mirror.
func newAppContext(flags *rootFlags) (*appContext, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if flags.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Level: level, HumanReadable: true})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := storage.NewStore(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("storage directory check failed: %w", err)
	}

	scenarios := storage.NewScenarioStore(store)
	settings := storage.NewSettingsStore(store)
	if _, seeded, err := settings.EnsureDefaults(); err != nil {
		return nil, fmt.Errorf("failed to seed default settings: %w", err)
	} else if seeded {
		log.WithComponent("startup").Info("seeded default settings from environment")
	}

	hist := history.NewStore(store)
	tr := tracker.New(store, log, tracker.OptionsFromConfig(cfg.Tracker))
	resolver := progress.NewResolver(tr, hist)
	exec := executor.New(
		tr,
		hist,
		scenarios,
		server.NewSettingsResolver(settings),
		log,
		executor.OptionsFromConfig(cfg.Executor),
	)

	return &appContext{
		cfg:       cfg,
		log:       log,
		scenarios: scenarios,
		settings:  settings,
		history:   hist,
		tracker:   tr,
		resolver:  resolver,
		executor:  exec,
	}, nil
}

// Close flushes the tracker mirror.
func (a *appContext) Close() {
	a.tracker.Close()
}
