package app

import (
	"context"
	"time"

	tea "charm.land/bubbletea/v2"

	"flowdeck/internal/activity"
	"flowdeck/internal/store"
	"flowdeck/internal/types"
)

const requestTimeout = 10 * time.Second

type runsMsg struct {
	runs []types.WorkflowRun
	err  error
}

type activityChangedMsg struct{}

type documentsMsg struct {
	kind        types.DocumentKind
	runID       string
	activityKey string
	docs        []types.Document
	err         error
}

type appStateSavedMsg struct {
	err error
}

type copyResultMsg struct {
	method clipboardMethod
	err    error
}

func fetchRunsCmd(api RunsAPI) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		runs, err := api.ListWorkflowRuns(ctx)
		return runsMsg{runs: runs, err: err}
	}
}

func fetchDocumentsCmd(api RunsAPI, kind types.DocumentKind, runID, activityKey string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		var docs []types.Document
		var err error
		if kind == types.DocumentKindInstruction {
			docs, err = api.ListActivityInstructions(ctx, runID, activityKey)
		} else {
			docs, err = api.ListActivityKnowledge(ctx, runID, activityKey)
		}
		return documentsMsg{kind: kind, runID: runID, activityKey: activityKey, docs: docs, err: err}
	}
}

// waitForChangesCmd blocks until the manager signals a change or closes.
func waitForChangesCmd(manager *activity.Manager) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-manager.Changes():
			return activityChangedMsg{}
		case <-manager.Done():
			return nil
		}
	}
}

func saveAppStateCmd(s store.AppStateStore, mutate func(*types.AppState)) tea.Cmd {
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return appStateSavedMsg{err: store.UpdateAppState(ctx, s, mutate)}
	}
}

func copyCmd(service ClipboardService, text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		method, err := service.Copy(ctx, text)
		return copyResultMsg{method: method, err: err}
	}
}
