package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"flowdeck/internal/activity"
	"flowdeck/internal/client"
	"flowdeck/internal/types"
)

type fakeRunsAPI struct {
	runs      []types.WorkflowRun
	runsErr   error
	knowledge map[string][]types.Document
	calls     []string
	mu        sync.Mutex
}

func (f *fakeRunsAPI) ListWorkflowRuns(context.Context) ([]types.WorkflowRun, error) {
	return f.runs, f.runsErr
}

func (f *fakeRunsAPI) ListActivityKnowledge(_ context.Context, runID, key string) ([]types.Document, error) {
	f.record("knowledge:" + runID + ":" + key)
	return f.knowledge[key], nil
}

func (f *fakeRunsAPI) ListActivityInstructions(_ context.Context, runID, key string) ([]types.Document, error) {
	f.record("instructions:" + runID + ":" + key)
	return nil, nil
}

func (f *fakeRunsAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

type feedCall struct {
	runID   string
	handler types.ActivityHandler
}

type stubFeed struct {
	opened chan feedCall
}

func newStubFeed() *stubFeed {
	return &stubFeed{opened: make(chan feedCall, 4)}
}

func (f *stubFeed) StreamActivities(ctx context.Context, runID string, handler types.ActivityHandler) error {
	f.opened <- feedCall{runID: runID, handler: handler}
	<-ctx.Done()
	return ctx.Err()
}

func (f *stubFeed) next(t *testing.T) feedCall {
	t.Helper()
	select {
	case call := <-f.opened:
		return call
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for feed")
		return feedCall{}
	}
}

type stubClipboard struct {
	copied []string
}

func (c *stubClipboard) Copy(_ context.Context, text string) (clipboardMethod, error) {
	c.copied = append(c.copied, text)
	return clipboardMethodSystem, nil
}

type memoryStateStore struct {
	mu    sync.Mutex
	state types.AppState
}

func (s *memoryStateStore) Load(context.Context) (*types.AppState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := s.state
	return &copied, nil
}

func (s *memoryStateStore) Save(_ context.Context, state *types.AppState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = *state
	return nil
}

func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func runCmd(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, inner := range batch {
			runCmd(t, m, inner)
		}
		return
	}
	if msg == nil {
		return
	}
	m.Update(msg)
}

func newTestModel(t *testing.T) (*Model, *fakeRunsAPI, *stubFeed, *stubClipboard, *memoryStateStore) {
	t.Helper()
	api := &fakeRunsAPI{
		runs: []types.WorkflowRun{
			{ID: "run-7", WorkflowName: "nightly", Status: types.WorkflowRunStatusCompleted},
			{ID: "run-42", WorkflowName: "triage", Status: types.WorkflowRunStatusRunning},
		},
		knowledge: map[string][]types.Document{
			"plan": {{ID: "kb-1", Title: "Planning notes", Content: "Check totals."}},
		},
	}
	feed := newStubFeed()
	clip := &stubClipboard{}
	state := &memoryStateStore{}
	m := NewModel(Options{
		API:        api,
		Feed:       feed,
		StateStore: state,
		Clipboard:  clip,
		AppState:   types.AppState{ActiveRunID: "run-42"},
	})
	t.Cleanup(func() { m.Manager().Close() })
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	return m, api, feed, clip, state
}

func TestModelSelectsRunAndRendersTimeline(t *testing.T) {
	m, api, feed, _, state := newTestModel(t)
	m.Update(runsMsg{runs: api.runs})
	if m.runCursor != 1 {
		t.Fatalf("expected cursor on last active run, got %d", m.runCursor)
	}

	_, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	runCmd(t, m, cmd)
	call := feed.next(t)
	if call.runID != "run-42" || m.mode != uiModeTimeline {
		t.Fatalf("expected timeline for run-42, got run=%q mode=%d", call.runID, m.mode)
	}
	if got, _ := state.Load(context.Background()); got.ActiveRunID != "run-42" || len(got.RecentRunIDs) != 1 {
		t.Fatalf("expected selection persisted, got %#v", got)
	}

	call.handler.Deliver(types.ActivityRecord{ID: "e1", ActivityName: "plan", StartedTime: "2024-05-01T10:00:02Z"})
	call.handler.Deliver(types.ActivityRecord{ID: "e2", ActivityName: "fetch", StartedTime: "2024-05-01T10:00:01Z"})
	m.Update(activityChangedMsg{})

	if len(m.entries) != 2 || m.entries[0].Record.ID != "e2" {
		t.Fatalf("expected ascending timeline, got %#v", m.entries)
	}
	if !m.View().AltScreen {
		t.Fatalf("expected alt screen view")
	}
}

func TestModelSortToggleKeepsSelection(t *testing.T) {
	m, _, feed, _, state := newTestModel(t)
	runCmd(t, m, m.selectRun("run-42"))
	call := feed.next(t)
	call.handler.Deliver(types.ActivityRecord{ID: "e1", StartedTime: "2024-05-01T10:00:01Z"})
	call.handler.Deliver(types.ActivityRecord{ID: "e2", StartedTime: "2024-05-01T10:00:02Z"})
	m.Update(activityChangedMsg{})

	m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if m.selectedID != "e2" {
		t.Fatalf("expected e2 selected, got %q", m.selectedID)
	}
	_, cmd := m.Update(keyRune('s'))
	runCmd(t, m, cmd)
	if !m.manager.Descending() || m.entries[0].Record.ID != "e2" {
		t.Fatalf("expected descending order with e2 first")
	}
	if m.cursor != 0 || m.selectedID != "e2" {
		t.Fatalf("expected selection to follow e2, cursor=%d id=%q", m.cursor, m.selectedID)
	}
	if got, _ := state.Load(context.Background()); !got.SortDescending {
		t.Fatalf("expected sort preference persisted")
	}
}

func TestModelRefreshClearsTimeline(t *testing.T) {
	m, _, feed, _, _ := newTestModel(t)
	runCmd(t, m, m.selectRun("run-42"))
	call := feed.next(t)
	call.handler.Deliver(types.ActivityRecord{ID: "e1"})
	m.Update(activityChangedMsg{})

	m.Update(keyRune('r'))
	if len(m.entries) != 0 {
		t.Fatalf("expected empty timeline after refresh")
	}
	second := feed.next(t)
	if second.runID != "run-42" {
		t.Fatalf("expected reconnect to run-42, got %q", second.runID)
	}
}

func TestModelDetailsAndCopy(t *testing.T) {
	m, _, feed, clip, _ := newTestModel(t)
	runCmd(t, m, m.selectRun("run-42"))
	call := feed.next(t)
	call.handler.Deliver(types.ActivityRecord{ID: "e1", ActivityName: "plan", Inputs: `{"a":1}`, Result: "oops {"})
	m.Update(activityChangedMsg{})

	m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.mode != uiModeDetail || !strings.Contains(m.detailTitle, "plan") {
		t.Fatalf("expected details for plan, mode=%d title=%q", m.mode, m.detailTitle)
	}
	_, cmd := m.Update(keyRune('y'))
	runCmd(t, m, cmd)
	if len(clip.copied) != 1 || !strings.Contains(clip.copied[0], `"activityName": "plan"`) {
		t.Fatalf("expected details json copied, got %v", clip.copied)
	}
	if !m.toastActive(time.Now()) || m.toastLevel != types.NotificationInfo {
		t.Fatalf("expected info toast after copy")
	}

	m.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.mode != uiModeTimeline {
		t.Fatalf("expected esc to return to timeline")
	}
}

func TestModelLoadsKnowledgeForSelectedActivity(t *testing.T) {
	m, api, feed, _, _ := newTestModel(t)
	runCmd(t, m, m.selectRun("run-42"))
	call := feed.next(t)
	call.handler.Deliver(types.ActivityRecord{ID: "e1", ActivityName: "plan"})
	m.Update(activityChangedMsg{})

	_, cmd := m.Update(keyRune('k'))
	runCmd(t, m, cmd)
	if len(api.calls) != 1 || api.calls[0] != "knowledge:run-42:plan" {
		t.Fatalf("unexpected api calls %v", api.calls)
	}
	if m.mode != uiModeDetail || !strings.HasPrefix(m.detailTitle, "Knowledge") {
		t.Fatalf("expected knowledge view, mode=%d title=%q", m.mode, m.detailTitle)
	}
	if !strings.Contains(m.detailCopy, "Planning notes") {
		t.Fatalf("expected document in view, got %q", m.detailCopy)
	}
}

func TestModelShowsFeedFailureToast(t *testing.T) {
	m, _, _, _, _ := newTestModel(t)
	m.notices.Notify(types.NotificationError, "activity feed for run-42 failed: boom (HTTP 500)")

	msg := waitForNotificationCmd(m.notices, m.manager.Done())()
	m.Update(msg)
	if !m.toastActive(time.Now()) || m.toastLevel != types.NotificationError {
		t.Fatalf("expected error toast")
	}
	if !strings.Contains(m.toastText, "boom") {
		t.Fatalf("unexpected toast %q", m.toastText)
	}
}

func TestModelRunsErrorToast(t *testing.T) {
	m, _, _, _, _ := newTestModel(t)
	m.Update(runsMsg{err: &client.APIError{StatusCode: 503, Message: "maintenance"}})
	if m.runsErr != "maintenance (HTTP 503)" {
		t.Fatalf("unexpected runs error %q", m.runsErr)
	}
	if m.toastLevel != types.NotificationError {
		t.Fatalf("expected error toast")
	}
}

func TestModelQuitClosesManager(t *testing.T) {
	m, _, _, _, _ := newTestModel(t)
	_, cmd := m.Update(keyRune('q'))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
	select {
	case <-m.manager.Done():
	default:
		t.Fatalf("expected manager closed on quit")
	}
	if m.manager.State() != activity.StateIdle {
		t.Fatalf("expected idle manager after quit")
	}
}
