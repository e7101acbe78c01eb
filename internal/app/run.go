package app

import (
	"context"
	"errors"

	tea "charm.land/bubbletea/v2"
)

// Run starts the dashboard and blocks until the operator quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	model := NewModel(opts)
	defer model.Manager().Close()

	p := tea.NewProgram(model, tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
