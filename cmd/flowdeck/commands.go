package main

import (
	"context"
	"io"
	"os"

	"flowdeck/internal/app"
	"flowdeck/internal/config"
	"flowdeck/internal/fixture"
	"flowdeck/internal/store"
)

type commandRunner interface {
	Run(ctx context.Context, args []string) error
}

type commandWiring struct {
	stdout       io.Writer
	stderr       io.Writer
	loadConfig   func() (config.CoreConfig, error)
	newClient    clientFactory
	openStore    func(path string) (store.Repository, error)
	runUI        func(ctx context.Context, opts app.Options) error
	serveFixture func(ctx context.Context, server *fixture.Server, addr string) error
	openLogFile  func() (io.WriteCloser, error)
	version      string
}

func defaultCommandWiring(stdout, stderr io.Writer) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return commandWiring{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: config.LoadCoreConfig,
		newClient:  newAPIClient,
		openStore:  store.Open,
		runUI:      app.Run,
		serveFixture: func(ctx context.Context, server *fixture.Server, addr string) error {
			return server.ListenAndServe(ctx, addr)
		},
		openLogFile: openUILogFile,
		version:     buildVersion(),
	}
}

func buildCommands(wiring commandWiring) map[string]commandRunner {
	return map[string]commandRunner{
		"health":   NewHealthCommand(wiring),
		"runs":     NewRunsCommand(wiring),
		"watch":    NewWatchCommand(wiring),
		"ui":       NewUICommand(wiring),
		"messages": NewMessagesCommand(wiring),
		"send":     NewSendCommand(wiring),
		"fixture":  NewFixtureCommand(wiring),
		"config":   NewConfigCommand(wiring.stdout, wiring.stderr),
	}
}
