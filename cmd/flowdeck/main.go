package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const usageText = `flowdeck watches workflow runs and their live activity timeline.

Usage:
  flowdeck <command> [flags]

Commands:
  health    check the backend is reachable
  runs      list workflow runs
  watch     print the live activity timeline of a run
  ui        run the terminal dashboard
  messages  list messages exchanged with a run
  send      send a message to a running workflow
  fixture   serve a scenario file as a local backend
  config    print configuration (effective or defaults)
  version   print the build version
  help      show help

Flags:
  -h, --help   show help

Examples:
  flowdeck runs
  flowdeck watch run-42 --desc
  flowdeck ui run-42
  flowdeck send run-42 "skip the audit step"
  flowdeck fixture --addr 127.0.0.1:8080
  flowdeck config --default --format toml
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	wiring := defaultCommandWiring(os.Stdout, os.Stderr)
	commands := buildCommands(wiring)

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	case "version":
		fmt.Fprintln(wiring.stdout, wiring.version)
		return
	}

	runner, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := runner.Run(ctx, args[1:])
	stop()
	exitOnErr(args[0], err, wiring.stderr)
}
