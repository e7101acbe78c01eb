package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"flowdeck/internal/fixture"
	"flowdeck/internal/logging"
)

const defaultFixtureAddr = "127.0.0.1:8080"

type FixtureCommand struct {
	wiring commandWiring
}

func NewFixtureCommand(wiring commandWiring) *FixtureCommand {
	return &FixtureCommand{wiring: wiring}
}

func (c *FixtureCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fixture", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	file := fs.String("file", "", "scenario yaml (defaults to the built-in demo)")
	addr := fs.String("addr", defaultFixtureAddr, "listen address")
	level := fs.String("log-level", "info", "log level: debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		scenario *fixture.Scenario
		err      error
	)
	if path := strings.TrimSpace(*file); path != "" {
		scenario, err = fixture.LoadScenario(path)
	} else {
		scenario, err = fixture.DemoScenario()
	}
	if err != nil {
		return err
	}

	logger := logging.New(c.wiring.stderr, logging.ParseLevel(*level))
	server := fixture.NewServer(scenario, fixture.WithLogger(logger))
	fmt.Fprintf(c.wiring.stderr, "serving scenario %q (%d runs) on http://%s\n", scenario.Name, len(scenario.Runs), *addr)
	if scenario.Token != "" {
		fmt.Fprintln(c.wiring.stderr, "requests must carry the scenario bearer token")
	}
	return c.wiring.serveFixture(ctx, server, *addr)
}
