package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/synthevents/internal/server"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scenario execution API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(flags)
		},
	}

	return cmd
}

func runServe(flags *rootFlags) error {
	app, err := newAppContext(flags)
	if err != nil {
		return err
	}
	defer app.Close()

	queue := server.NewQueue(app.executor, app.log, 64)
	queue.Start(context.Background())
	defer queue.Close()

	srv := server.New(app.cfg, app.log, app.scenarios, app.settings, app.history, app.tracker, app.resolver, queue)

	sweeper := cron.New()
	schedule := fmt.Sprintf("@every %s", app.cfg.Tracker.SweepInterval)
	if _, err := sweeper.AddFunc(schedule, func() {
		if repaired := app.tracker.SweepStuck(); repaired > 0 {
			app.log.WithComponent("sweeper").WithFields(map[string]any{"repaired": repaired}).Warn("repaired stuck executions")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule stuck-execution sweep: %w", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		app.log.WithFields(map[string]any{"signal": sig.String()}).Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.log.Error(err, "http shutdown failed")
	}
	return nil
}
