package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"flowdeck/internal/app"
	"flowdeck/internal/logging"
	"flowdeck/internal/store"
)

type UICommand struct {
	wiring commandWiring
}

func NewUICommand(wiring commandWiring) *UICommand {
	return &UICommand{wiring: wiring}
}

func (c *UICommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	var runID string
	if len(positional) > 0 {
		runID = positional[0]
	}

	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	logOut := io.Discard
	if c.wiring.openLogFile != nil {
		file, err := c.wiring.openLogFile()
		if err != nil {
			return err
		}
		defer file.Close()
		logOut = file
	}
	logger := logging.New(logOut, logging.ParseLevel(cfg.LogLevel()))

	client, err := c.wiring.newClient(cfg, logger)
	if err != nil {
		return err
	}
	storePath, err := cfg.StorePath()
	if err != nil {
		return err
	}
	opts := app.Options{
		API:            client,
		Feed:           client,
		InitialRunID:   runID,
		HighlightDelay: cfg.HighlightDelay(),
		Logger:         logger,
	}
	opts.AppState.SortDescending = cfg.SortDescending()

	backend := "none"
	repo, err := c.wiring.openStore(storePath)
	switch {
	case errors.Is(err, store.ErrStoreLocked):
		fmt.Fprintf(c.wiring.stderr, "warning: %v; preferences will not be saved\n", err)
		logger.Warn("preferences unavailable", logging.Err(err))
	case err != nil:
		return err
	default:
		defer repo.Close()
		backend = repo.Backend()
		opts.StateStore = repo.AppState()
		state, err := repo.AppState().Load(ctx)
		if err != nil {
			logger.Warn("load preferences failed", logging.Err(err))
		} else if !state.IsZero() {
			opts.AppState = *state
		}
	}
	logger.Info("ui starting", logging.F("store", backend), logging.F("run_id", runID))
	return c.wiring.runUI(ctx, opts)
}
