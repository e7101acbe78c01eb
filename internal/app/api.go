package app

import (
	"context"

	"flowdeck/internal/types"
)

// RunsAPI is the slice of the platform API the dashboard reads from.
type RunsAPI interface {
	ListWorkflowRuns(ctx context.Context) ([]types.WorkflowRun, error)
	ListActivityKnowledge(ctx context.Context, runID, activityKey string) ([]types.Document, error)
	ListActivityInstructions(ctx context.Context, runID, activityKey string) ([]types.Document, error)
}
