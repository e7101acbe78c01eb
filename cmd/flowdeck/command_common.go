package main

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"text/tabwriter"

	"flowdeck/internal/config"
	"flowdeck/internal/logging"
	"flowdeck/internal/types"
)

const version = "dev"

func printRuns(output io.Writer, runs []types.WorkflowRun) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tSTATUS\tWORKFLOW\tSTARTED\tENDED")
	for _, run := range runs {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n", run.ID, run.Status, run.WorkflowName, orDash(run.StartedTime), orDash(run.EndedTime))
	}
	_ = writer.Flush()
}

func printMessages(output io.Writer, messages []types.Message) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tDIRECTION\tSENT\tTEXT")
	for _, msg := range messages {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", msg.ID, msg.Direction, orDash(msg.SentTime), msg.Text)
	}
	_ = writer.Flush()
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

// commandLogger builds the logger for headless commands, writing to stderr
// at the configured level.
func commandLogger(cfg config.CoreConfig, stderr io.Writer) logging.Logger {
	return logging.New(stderr, logging.ParseLevel(cfg.LogLevel()))
}

func openUILogFile() (io.WriteCloser, error) {
	path, err := config.LogPath()
	if err != nil {
		return nil, err
	}
	dataDir, err := config.DataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}

func exitOnErr(label string, err error, stderr io.Writer) {
	if err == nil {
		return
	}
	fmt.Fprintf(stderr, "%s error: %v\n", label, err)
	os.Exit(1)
}

// buildVersion reports the module version, or the short vcs revision for
// development builds.
func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	var revision, modified string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value
		}
	}
	if revision == "" {
		return version
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if modified == "true" {
		revision += "-dirty"
	}
	return version + "+" + revision
}
