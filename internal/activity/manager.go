package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"flowdeck/internal/client"
	"flowdeck/internal/logging"
	"flowdeck/internal/types"
)

var (
	ErrSubjectRequired = errors.New("activity: run id is required")
	ErrManagerClosed   = errors.New("activity: manager is closed")
)

// Feed opens the live activity feed for a run. It blocks until the feed ends
// and must stop delivering records once ctx is done.
type Feed interface {
	StreamActivities(ctx context.Context, runID string, handler types.ActivityHandler) error
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	clock          Clock
	highlightDelay time.Duration
	notifier       Notifier
	logger         logging.Logger
	descending     bool
	stateObserver  func(runID string, state State)
}

// WithClock replaces the clock used for highlight expiry.
func WithClock(clock Clock) ManagerOption {
	return func(o *managerOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithHighlightDelay sets how long the newest record stays highlighted.
func WithHighlightDelay(delay time.Duration) ManagerOption {
	return func(o *managerOptions) {
		if delay > 0 {
			o.highlightDelay = delay
		}
	}
}

// WithNotifier sets where feed failures are reported. The notifier must not
// call Close.
func WithNotifier(notifier Notifier) ManagerOption {
	return func(o *managerOptions) {
		if notifier != nil {
			o.notifier = notifier
		}
	}
}

// WithLogger sets the logger; nil means no logging.
func WithLogger(logger logging.Logger) ManagerOption {
	return func(o *managerOptions) {
		o.logger = logging.OrNop(logger)
	}
}

// WithDescending sets the initial display direction.
func WithDescending(descending bool) ManagerOption {
	return func(o *managerOptions) {
		o.descending = descending
	}
}

// WithStateObserver registers a callback invoked, outside the manager lock,
// after every state transition. The callback must not call Close.
func WithStateObserver(fn func(runID string, state State)) ManagerOption {
	return func(o *managerOptions) {
		o.stateObserver = fn
	}
}

type session struct {
	gen       uint64
	runID     string
	store     *Store
	freshness *FreshnessTracker
	orderer   Orderer
	cancel    context.CancelFunc
	done      chan struct{}
}

type transition struct {
	runID string
	state State
}

type notice struct {
	level   types.NotificationLevel
	message string
}

// Manager owns at most one live feed session. Feed callbacks and expiry
// timers reach shared state only under mu; callbacks carrying a retired
// session's generation are dropped.
type Manager struct {
	feed     Feed
	clock    Clock
	delay    time.Duration
	notifier Notifier
	logger   logging.Logger
	observer func(runID string, state State)

	mu          sync.Mutex
	gen         uint64
	current     *session
	subject     string
	state       State
	err         error
	descending  bool
	closed      bool
	transitions []transition
	notices     []notice

	changes chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	flushes sync.WaitGroup
}

func NewManager(feed Feed, opts ...ManagerOption) *Manager {
	options := managerOptions{
		clock:          RealClock(),
		highlightDelay: DefaultHighlightDelay,
		notifier:       nopNotifier{},
		logger:         logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return &Manager{
		feed:       feed,
		clock:      options.clock,
		delay:      options.highlightDelay,
		notifier:   options.notifier,
		logger:     logging.Component(options.logger, "activity"),
		observer:   options.stateObserver,
		descending: options.descending,
		changes:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Select makes runID the subject. Selecting the run that is already live is
// a no-op; an empty id retires the current session and leaves the manager
// idle.
func (m *Manager) Select(runID string) error {
	runID = strings.TrimSpace(runID)
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if runID != "" && runID == m.subject && m.current != nil && m.state.Live() {
		m.mu.Unlock()
		return nil
	}
	m.retireLocked()
	m.subject = runID
	if runID == "" {
		m.setStateLocked(StateIdle)
	} else {
		m.startLocked()
	}
	m.unlockAndFlush()
	m.signal()
	return nil
}

// Refresh discards everything received for the subject and reconnects.
func (m *Manager) Refresh() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if m.subject == "" {
		m.mu.Unlock()
		return ErrSubjectRequired
	}
	m.setStateLocked(StateRestarting)
	m.retireLocked()
	m.startLocked()
	m.unlockAndFlush()
	m.signal()
	return nil
}

// Close retires the live session and rejects further use. No feed or timer
// callback has any effect once Close returns. Close is idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.retireLocked()
	m.setStateLocked(StateIdle)
	m.unlockAndFlush()
	m.flushes.Wait()
	close(m.done)
}

// Wait blocks until every feed goroutine started by the manager has exited.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Changes signals that Entries or State may have changed. Signals coalesce.
func (m *Manager) Changes() <-chan struct{} {
	return m.changes
}

func (m *Manager) ToggleSort() bool {
	m.mu.Lock()
	m.descending = !m.descending
	descending := m.descending
	m.mu.Unlock()
	m.signal()
	return descending
}

func (m *Manager) SetDescending(descending bool) {
	m.mu.Lock()
	changed := m.descending != descending
	m.descending = descending
	m.mu.Unlock()
	if changed {
		m.signal()
	}
}

func (m *Manager) Descending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.descending
}

func (m *Manager) Subject() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subject
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the failure that moved the manager into StateError.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Entries returns the current session's records in display order with the
// freshest record highlighted.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	entries := m.current.orderer.Entries(m.current.store, m.descending)
	latest := m.current.freshness.Latest()
	for i := range entries {
		entries[i].Highlighted = latest != "" && entries[i].Record.ID == latest
	}
	return entries
}

// Record looks up a record of the current session by id.
func (m *Manager) Record(id string) (types.ActivityRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return types.ActivityRecord{}, false
	}
	return m.current.store.Get(id)
}

func (m *Manager) startLocked() {
	m.gen++
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		gen:    m.gen,
		runID:  m.subject,
		store:  NewStore(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.freshness = NewFreshnessTracker(m.clock, m.delay, m.signal)
	m.current = s
	m.err = nil
	m.setStateLocked(StateConnecting)
	m.logger.Info("activity session start", logging.F("run_id", s.runID), logging.F("generation", s.gen))

	handler := types.ActivityHandler{
		Opened: func() { m.opened(s.gen) },
		Record: func(record types.ActivityRecord) { m.merge(s.gen, record) },
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(s.done)
		err := m.feed.StreamActivities(ctx, s.runID, handler)
		m.finish(s.gen, err)
	}()
}

func (m *Manager) retireLocked() {
	s := m.current
	if s == nil {
		return
	}
	m.current = nil
	s.cancel()
	s.freshness.Stop()
	m.logger.Info("activity session retired", logging.F("run_id", s.runID), logging.F("generation", s.gen), logging.F("records", s.store.Len()))
}

func (m *Manager) liveLocked(gen uint64) *session {
	if m.closed || m.current == nil || m.current.gen != gen {
		return nil
	}
	return m.current
}

func (m *Manager) opened(gen uint64) {
	m.mu.Lock()
	if m.liveLocked(gen) == nil || m.state != StateConnecting {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(StateStreaming)
	m.unlockAndFlush()
	m.signal()
}

func (m *Manager) merge(gen uint64, record types.ActivityRecord) {
	m.mu.Lock()
	s := m.liveLocked(gen)
	if s == nil {
		m.mu.Unlock()
		m.logger.Debug("stale activity record dropped", logging.F("id", record.ID), logging.F("generation", gen))
		return
	}
	if m.state == StateConnecting {
		m.setStateLocked(StateStreaming)
	}
	outcome := s.store.Merge(record)
	switch outcome {
	case MergeRejected:
		m.logger.Warn("activity record without id ignored", logging.F("run_id", s.runID), logging.F("activity", record.ActivityName))
	case MergeDuplicate:
		m.logger.Debug("duplicate activity record ignored", logging.F("id", record.ID))
	case MergeAdded:
		s.freshness.Mark(strings.TrimSpace(record.ID))
	}
	m.unlockAndFlush()
	if outcome == MergeAdded {
		m.signal()
	}
}

func (m *Manager) finish(gen uint64, err error) {
	m.mu.Lock()
	s := m.liveLocked(gen)
	if s == nil {
		m.mu.Unlock()
		return
	}
	switch {
	case err == nil:
		m.logger.Info("activity feed ended", logging.F("run_id", s.runID), logging.F("records", s.store.Len()))
		m.setStateLocked(StateClosed)
	case errors.Is(err, context.Canceled):
		m.mu.Unlock()
		return
	default:
		m.logger.Error("activity feed failed", logging.F("run_id", s.runID), logging.Err(err))
		m.err = err
		m.setStateLocked(StateError)
		m.notices = append(m.notices, notice{
			level:   types.NotificationError,
			message: failureMessage(s.runID, err),
		})
	}
	m.unlockAndFlush()
	m.signal()
}

func (m *Manager) setStateLocked(state State) {
	if m.state == state && state != StateRestarting {
		return
	}
	m.state = state
	m.transitions = append(m.transitions, transition{runID: m.subject, state: state})
}

// unlockAndFlush releases mu and then delivers queued state transitions and
// notifications, so observers may read the manager. Close waits for every
// batch taken before it.
func (m *Manager) unlockAndFlush() {
	transitions := m.transitions
	notices := m.notices
	m.transitions = nil
	m.notices = nil
	if len(transitions) == 0 && len(notices) == 0 {
		m.mu.Unlock()
		return
	}
	m.flushes.Add(1)
	m.mu.Unlock()
	defer m.flushes.Done()
	if m.observer != nil {
		for _, t := range transitions {
			m.observer(t.runID, t.state)
		}
	}
	for _, n := range notices {
		m.notifier.Notify(n.level, n.message)
	}
}

func (m *Manager) signal() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func failureMessage(runID string, err error) string {
	if apiErr := client.AsAPIError(err); apiErr != nil {
		return fmt.Sprintf("activity feed for %s failed: %s (HTTP %d)", runID, apiErr.Message, apiErr.StatusCode)
	}
	return fmt.Sprintf("activity feed for %s failed: connection lost", runID)
}
