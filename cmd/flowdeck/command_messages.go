package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
)

type MessagesCommand struct {
	wiring commandWiring
}

func NewMessagesCommand(wiring commandWiring) *MessagesCommand {
	return &MessagesCommand{wiring: wiring}
}

func (c *MessagesCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("messages", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("messages requires a run id")
	}

	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	client, err := c.wiring.newClient(cfg, commandLogger(cfg, c.wiring.stderr))
	if err != nil {
		return err
	}
	messages, err := client.ListMessages(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	printMessages(c.wiring.stdout, messages)
	return nil
}

type SendCommand struct {
	wiring commandWiring
}

func NewSendCommand(wiring commandWiring) *SendCommand {
	return &SendCommand{wiring: wiring}
}

func (c *SendCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return errors.New("send requires a run id and message text")
	}
	runID := fs.Arg(0)
	text := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
	if text == "" {
		return errors.New("message text is required")
	}

	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	client, err := c.wiring.newClient(cfg, commandLogger(cfg, c.wiring.stderr))
	if err != nil {
		return err
	}
	msg, err := client.SendMessage(ctx, runID, text)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.wiring.stdout, msg.ID)
	return nil
}
