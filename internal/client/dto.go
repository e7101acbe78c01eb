package client

import "flowdeck/internal/types"

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version,omitempty"`
}

type WorkflowRunsResponse struct {
	Runs []types.WorkflowRun `json:"runs"`
}

type DocumentsResponse struct {
	Documents []types.Document `json:"documents"`
}

type MessagesResponse struct {
	Messages []types.Message `json:"messages"`
}

type SendMessageRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
