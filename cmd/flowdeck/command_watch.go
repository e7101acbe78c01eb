package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"flowdeck/internal/activity"
	"flowdeck/internal/logging"
	"flowdeck/internal/types"
)

type WatchCommand struct {
	wiring commandWiring
}

func NewWatchCommand(wiring commandWiring) *WatchCommand {
	return &WatchCommand{wiring: wiring}
}

func (c *WatchCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	desc := fs.Bool("desc", false, "list newest activities first")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) < 1 {
		return errors.New("watch requires a run id")
	}
	runID := positional[0]

	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	logger := commandLogger(cfg, c.wiring.stderr)
	client, err := c.wiring.newClient(cfg, logger)
	if err != nil {
		return err
	}

	run, err := client.GetWorkflowRun(ctx, runID)
	if err != nil {
		return err
	}
	stderr := c.wiring.stderr
	fmt.Fprintf(stderr, "watching %s · %s · %s\n", run.ID, run.WorkflowName, run.Status)

	manager := activity.NewManager(client,
		activity.WithLogger(logging.Component(logger, "watch")),
		activity.WithDescending(*desc || cfg.SortDescending()),
		activity.WithHighlightDelay(cfg.HighlightDelay()),
		activity.WithNotifier(activity.NotifierFunc(func(level types.NotificationLevel, message string) {
			fmt.Fprintf(stderr, "%s: %s\n", level, message)
		})),
	)
	defer func() {
		manager.Close()
		manager.Wait()
	}()

	if err := manager.Select(runID); err != nil {
		return err
	}
	return watchTimeline(ctx, manager, c.wiring.stdout)
}

// watchTimeline reprints the timeline whenever it changes and returns once
// the feed ends, fails, or ctx is done.
func watchTimeline(ctx context.Context, manager *activity.Manager, out io.Writer) error {
	var last string
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-manager.Changes():
		}
		state := manager.State()
		frame := formatWatchFrame(manager.Subject(), state, manager.Descending(), manager.Entries())
		if frame != last {
			fmt.Fprint(out, frame)
			last = frame
		}
		switch state {
		case activity.StateClosed:
			return nil
		case activity.StateError:
			return manager.Err()
		}
	}
}

func formatWatchFrame(runID string, state activity.State, descending bool, entries []activity.Entry) string {
	var b strings.Builder
	order := "oldest first"
	if descending {
		order = "newest first"
	}
	fmt.Fprintf(&b, "== %s · %s · %d records · %s\n", runID, state, len(entries), order)
	writer := tabwriter.NewWriter(&b, 0, 8, 2, ' ', 0)
	for _, entry := range entries {
		marker := " "
		if entry.Highlighted {
			marker = "*"
		}
		started := "--------"
		if !entry.StartedAt.IsZero() {
			started = entry.StartedAt.Format("15:04:05")
		}
		name := entry.Record.ActivityName
		if key := entry.Record.ActivityID; key != "" && key != name {
			name += " [" + key + "]"
		}
		fmt.Fprintf(writer, "%s%d\t%s\t%s\t%s\n", marker, entry.Index, started, name, entry.Record.ID)
	}
	_ = writer.Flush()
	return b.String()
}
