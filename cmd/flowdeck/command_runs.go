package main

import (
	"context"
	"flag"
	"fmt"
)

type RunsCommand struct {
	wiring commandWiring
}

func NewRunsCommand(wiring commandWiring) *RunsCommand {
	return &RunsCommand{wiring: wiring}
}

func (c *RunsCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	client, err := c.wiring.newClient(cfg, commandLogger(cfg, c.wiring.stderr))
	if err != nil {
		return err
	}
	runs, err := client.ListWorkflowRuns(ctx)
	if err != nil {
		return err
	}

	printRuns(c.wiring.stdout, runs)
	return nil
}

type HealthCommand struct {
	wiring commandWiring
}

func NewHealthCommand(wiring commandWiring) *HealthCommand {
	return &HealthCommand{wiring: wiring}
}

func (c *HealthCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	client, err := c.wiring.newClient(cfg, commandLogger(cfg, c.wiring.stderr))
	if err != nil {
		return err
	}
	health, err := client.Health(ctx)
	if err != nil {
		return err
	}
	if !health.OK {
		return fmt.Errorf("backend at %s reports unhealthy", cfg.APIBaseURL())
	}
	fmt.Fprintf(c.wiring.stdout, "ok %s %s\n", cfg.APIBaseURL(), orDash(health.Version))
	return nil
}

// parseInterspersed parses flags that may follow positional arguments and
// returns the positionals in order.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}
