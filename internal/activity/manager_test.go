package activity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"flowdeck/internal/client"
	"flowdeck/internal/testutil"
	"flowdeck/internal/types"
)

type feedCall struct {
	ctx     context.Context
	runID   string
	handler types.ActivityHandler
	finish  chan error
}

func (c *feedCall) deliver(records ...types.ActivityRecord) {
	for _, record := range records {
		c.handler.Deliver(record)
	}
}

type fakeFeed struct {
	started chan *feedCall
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{started: make(chan *feedCall, 8)}
}

func (f *fakeFeed) StreamActivities(ctx context.Context, runID string, handler types.ActivityHandler) error {
	call := &feedCall{ctx: ctx, runID: runID, handler: handler, finish: make(chan error, 1)}
	f.started <- call
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-call.finish:
		return err
	}
}

func (f *fakeFeed) next(t *testing.T) *feedCall {
	t.Helper()
	select {
	case call := <-f.started:
		return call
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for feed to open")
		return nil
	}
}

func (f *fakeFeed) assertIdle(t *testing.T) {
	t.Helper()
	select {
	case call := <-f.started:
		t.Fatalf("unexpected feed open for %q", call.runID)
	default:
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	levels   []types.NotificationLevel
}

func (n *recordingNotifier) Notify(level types.NotificationLevel, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.levels = append(n.levels, level)
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) snapshot() ([]types.NotificationLevel, []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]types.NotificationLevel(nil), n.levels...), append([]string(nil), n.messages...)
}

func waitForState(t *testing.T, m *Manager, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected state %s, got %s", want, m.State())
}

func TestManagerRun42Scenario(t *testing.T) {
	feed := newFakeFeed()
	clock := testutil.NewManualClock()
	m := NewManager(feed, WithClock(clock), WithHighlightDelay(5*time.Second))
	defer m.Close()

	if err := m.Select("run-42"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	call := feed.next(t)
	if call.runID != "run-42" {
		t.Fatalf("expected feed for run-42, got %q", call.runID)
	}
	call.handler.NotifyOpened()
	if m.State() != StateStreaming {
		t.Fatalf("expected streaming, got %s", m.State())
	}
	call.deliver(
		types.ActivityRecord{ID: "e1", ActivityName: "plan", StartedTime: "2024-05-01T10:00:02Z"},
		types.ActivityRecord{ID: "e2", ActivityName: "fetch", StartedTime: "2024-05-01T10:00:01Z"},
	)
	clock.Advance(3 * time.Second)
	call.deliver(types.ActivityRecord{ID: "e1", ActivityName: "plan", StartedTime: "2024-05-01T10:00:02Z"})

	entries := m.Entries()
	assertIDs(t, entries, "e2", "e1")
	if entries[0].Index != 1 || entries[1].Index != 2 {
		t.Fatalf("expected e2=1 e1=2, got e2=%d e1=%d", entries[0].Index, entries[1].Index)
	}
	if !entries[0].Highlighted || entries[1].Highlighted {
		t.Fatalf("expected only e2 highlighted after the duplicate e1, got e2=%v e1=%v", entries[0].Highlighted, entries[1].Highlighted)
	}

	// The duplicate did not restart the expiry: e2 clears 5s after its own arrival.
	clock.Advance(2 * time.Second)
	for _, entry := range m.Entries() {
		if entry.Highlighted {
			t.Fatalf("expected highlight on %s to expire on the original schedule", entry.Record.ID)
		}
	}

	m.ToggleSort()
	desc := m.Entries()
	assertIDs(t, desc, "e1", "e2")
	if desc[0].Index != 2 || desc[1].Index != 1 {
		t.Fatalf("expected indices to survive toggle, got %d,%d", desc[0].Index, desc[1].Index)
	}
}

func TestManagerHighlightExpiresWithoutMerges(t *testing.T) {
	feed := newFakeFeed()
	clock := testutil.NewManualClock()
	m := NewManager(feed, WithClock(clock), WithHighlightDelay(5*time.Second))
	defer m.Close()

	_ = m.Select("run-1")
	call := feed.next(t)
	call.deliver(types.ActivityRecord{ID: "e1", StartedTime: "2024-05-01T10:00:00Z"})
	drainChanges(m)

	if !m.Entries()[0].Highlighted {
		t.Fatalf("expected fresh record highlighted")
	}
	clock.Advance(5 * time.Second)
	if m.Entries()[0].Highlighted {
		t.Fatalf("expected highlight to expire")
	}
	select {
	case <-m.Changes():
	default:
		t.Fatalf("expected expiry to signal a change")
	}
}

func TestManagerRefreshStartsCleanSession(t *testing.T) {
	feed := newFakeFeed()
	clock := testutil.NewManualClock()
	m := NewManager(feed, WithClock(clock))
	defer m.Close()

	_ = m.Select("run-1")
	first := feed.next(t)
	first.deliver(types.ActivityRecord{ID: "e1"}, types.ActivityRecord{ID: "e2"})
	if len(m.Entries()) != 2 {
		t.Fatalf("expected two entries before refresh")
	}

	if err := m.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := m.Entries(); len(got) != 0 {
		t.Fatalf("expected empty timeline after refresh, got %v", ids(got))
	}
	if clock.Pending() != 0 {
		t.Fatalf("expected retired highlight timer to be stopped, pending=%d", clock.Pending())
	}
	second := feed.next(t)
	if first.ctx.Err() == nil {
		t.Fatalf("expected retired connection to be cancelled")
	}

	first.deliver(types.ActivityRecord{ID: "stale"})
	if got := m.Entries(); len(got) != 0 {
		t.Fatalf("expected stale record to be dropped, got %v", ids(got))
	}

	second.deliver(types.ActivityRecord{ID: "e1"})
	assertIDs(t, m.Entries(), "e1")
	if m.State() != StateStreaming {
		t.Fatalf("expected first record to mark streaming, got %s", m.State())
	}
}

func TestManagerSelectSameLiveRunIsNoop(t *testing.T) {
	feed := newFakeFeed()
	m := NewManager(feed)
	defer m.Close()

	_ = m.Select("run-1")
	call := feed.next(t)
	call.deliver(types.ActivityRecord{ID: "e1"})

	_ = m.Select(" run-1 ")
	feed.assertIdle(t)
	if len(m.Entries()) != 1 {
		t.Fatalf("expected timeline to survive reselect")
	}
}

func TestManagerSubjectChangeRetiresPreviousRun(t *testing.T) {
	feed := newFakeFeed()
	m := NewManager(feed)
	defer m.Close()

	_ = m.Select("run-1")
	first := feed.next(t)
	first.deliver(types.ActivityRecord{ID: "e1"})

	_ = m.Select("run-2")
	second := feed.next(t)
	if second.runID != "run-2" || m.Subject() != "run-2" {
		t.Fatalf("expected run-2 subject, got %q", m.Subject())
	}
	if first.ctx.Err() == nil {
		t.Fatalf("expected run-1 feed to be cancelled")
	}
	if len(m.Entries()) != 0 {
		t.Fatalf("expected run-1 records discarded")
	}

	_ = m.Select("")
	if m.State() != StateIdle || m.Entries() != nil {
		t.Fatalf("expected empty selection to retire, state=%s", m.State())
	}
	if second.ctx.Err() == nil {
		t.Fatalf("expected run-2 feed to be cancelled")
	}
}

func TestManagerFeedFailureNotifies(t *testing.T) {
	feed := newFakeFeed()
	notifier := &recordingNotifier{}
	m := NewManager(feed, WithNotifier(notifier))
	defer m.Close()

	_ = m.Select("run-9")
	call := feed.next(t)
	call.finish <- &client.APIError{StatusCode: 404, Message: "run not found"}
	m.Wait()
	if m.State() != StateError {
		t.Fatalf("expected error state, got %s", m.State())
	}

	var apiErr *client.APIError
	if !errors.As(m.Err(), &apiErr) || apiErr.StatusCode != 404 {
		t.Fatalf("expected api error, got %v", m.Err())
	}
	levels, messages := notifier.snapshot()
	if len(messages) != 1 || levels[0] != types.NotificationError {
		t.Fatalf("expected one error notification, got %v", messages)
	}
	if !strings.Contains(messages[0], "run-9") || !strings.Contains(messages[0], "run not found") {
		t.Fatalf("unexpected notification %q", messages[0])
	}
	feed.assertIdle(t)

	if err := m.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	feed.next(t)
	if m.Err() != nil {
		t.Fatalf("expected refresh to clear the error")
	}
}

func TestManagerCloseWaitsForPendingNotification(t *testing.T) {
	feed := newFakeFeed()
	entered := make(chan struct{})
	release := make(chan struct{})
	m := NewManager(feed, WithNotifier(NotifierFunc(func(types.NotificationLevel, string) {
		close(entered)
		<-release
	})))

	_ = m.Select("run-9")
	call := feed.next(t)
	call.finish <- errors.New("connection reset")
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatalf("expected failure notification")
	}

	closed := make(chan struct{})
	go func() {
		m.Close()
		close(closed)
	}()
	select {
	case <-closed:
		t.Fatalf("expected Close to wait for the notification in flight")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatalf("expected Close to return once the notification was delivered")
	}
	m.Wait()
}

func TestManagerFeedEndMovesToClosed(t *testing.T) {
	feed := newFakeFeed()
	m := NewManager(feed)
	defer m.Close()

	_ = m.Select("run-1")
	call := feed.next(t)
	call.deliver(types.ActivityRecord{ID: "e1"})
	call.finish <- nil
	waitForState(t, m, StateClosed)
	if len(m.Entries()) != 1 {
		t.Fatalf("expected records to stay visible after feed end")
	}
}

func TestManagerCloseIsIdempotentAndFinal(t *testing.T) {
	feed := newFakeFeed()
	clock := testutil.NewManualClock()
	var mu sync.Mutex
	var states []State
	m := NewManager(feed, WithClock(clock), WithStateObserver(func(_ string, state State) {
		mu.Lock()
		states = append(states, state)
		mu.Unlock()
	}))

	_ = m.Select("run-1")
	call := feed.next(t)
	call.deliver(types.ActivityRecord{ID: "e1"})

	m.Close()
	m.Close()
	m.Wait()

	select {
	case <-m.Done():
	default:
		t.Fatalf("expected done channel to be closed")
	}
	call.deliver(types.ActivityRecord{ID: "e2"})
	call.handler.NotifyOpened()
	if m.Entries() != nil {
		t.Fatalf("expected no entries after close")
	}
	if clock.Pending() != 0 {
		t.Fatalf("expected timers stopped on close")
	}
	if err := m.Select("run-2"); !errors.Is(err, ErrManagerClosed) {
		t.Fatalf("expected ErrManagerClosed, got %v", err)
	}
	if err := m.Refresh(); !errors.Is(err, ErrManagerClosed) {
		t.Fatalf("expected ErrManagerClosed, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateConnecting, StateStreaming, StateIdle}
	if len(states) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("expected transitions %v, got %v", want, states)
		}
	}
}

func TestManagerRefreshRequiresSubject(t *testing.T) {
	m := NewManager(newFakeFeed())
	defer m.Close()
	if err := m.Refresh(); !errors.Is(err, ErrSubjectRequired) {
		t.Fatalf("expected ErrSubjectRequired, got %v", err)
	}
}

func TestManagerSortPreference(t *testing.T) {
	m := NewManager(newFakeFeed(), WithDescending(true))
	defer m.Close()
	if !m.Descending() {
		t.Fatalf("expected descending from option")
	}
	if m.ToggleSort() {
		t.Fatalf("expected toggle to flip to ascending")
	}
	m.SetDescending(true)
	if !m.Descending() {
		t.Fatalf("expected descending after SetDescending")
	}
}

func drainChanges(m *Manager) {
	for {
		select {
		case <-m.Changes():
		default:
			return
		}
	}
}
