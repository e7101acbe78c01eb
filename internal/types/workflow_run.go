package types

type WorkflowRunStatus string

const (
	WorkflowRunStatusPending   WorkflowRunStatus = "pending"
	WorkflowRunStatusRunning   WorkflowRunStatus = "running"
	WorkflowRunStatusCompleted WorkflowRunStatus = "completed"
	WorkflowRunStatusFailed    WorkflowRunStatus = "failed"
	WorkflowRunStatusCancelled WorkflowRunStatus = "cancelled"
)

type WorkflowRun struct {
	ID           string            `json:"id" yaml:"id"`
	WorkflowName string            `json:"workflowName" yaml:"workflowName"`
	Status       WorkflowRunStatus `json:"status" yaml:"status"`
	StartedTime  string            `json:"startedTime,omitempty" yaml:"startedTime,omitempty"`
	EndedTime    string            `json:"endedTime,omitempty" yaml:"endedTime,omitempty"`
}

func (r WorkflowRun) Active() bool {
	return r.Status == WorkflowRunStatusPending || r.Status == WorkflowRunStatusRunning
}
