package main

import (
	"context"

	"flowdeck/internal/client"
	"flowdeck/internal/config"
	"flowdeck/internal/logging"
	"flowdeck/internal/types"
)

type clientFactory func(cfg config.CoreConfig, logger logging.Logger) (commandClient, error)

type commandClient interface {
	Health(ctx context.Context) (*client.HealthResponse, error)
	ListWorkflowRuns(ctx context.Context) ([]types.WorkflowRun, error)
	GetWorkflowRun(ctx context.Context, runID string) (*types.WorkflowRun, error)
	ListActivityKnowledge(ctx context.Context, runID, activityKey string) ([]types.Document, error)
	ListActivityInstructions(ctx context.Context, runID, activityKey string) ([]types.Document, error)
	StreamActivities(ctx context.Context, runID string, handler types.ActivityHandler) error
	ListMessages(ctx context.Context, runID string) ([]types.Message, error)
	SendMessage(ctx context.Context, runID, text string) (*types.Message, error)
}

func newAPIClient(cfg config.CoreConfig, logger logging.Logger) (commandClient, error) {
	return client.NewFromConfig(cfg, logger)
}
