package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"flowdeck/internal/activity"
	"flowdeck/internal/client"
	"flowdeck/internal/logging"
	"flowdeck/internal/store"
	"flowdeck/internal/types"
)

const (
	minViewportWidth = 20
	minBodyHeight    = 3
	chromeLines      = 4
)

type uiMode int

const (
	uiModeRuns uiMode = iota
	uiModeTimeline
	uiModeDetail
)

type Options struct {
	API            RunsAPI
	Feed           activity.Feed
	StateStore     store.AppStateStore
	AppState       types.AppState
	InitialRunID   string
	HighlightDelay time.Duration
	Clock          activity.Clock
	Clipboard      ClipboardService
	Logger         logging.Logger
	Now            func() time.Time
}

type Model struct {
	api        RunsAPI
	manager    *activity.Manager
	notices    *NotificationQueue
	stateStore store.AppStateStore
	appState   types.AppState
	clipboard  ClipboardService
	logger     logging.Logger
	now        func() time.Time

	mode   uiMode
	width  int
	height int
	status string

	runs        []types.WorkflowRun
	runsLoaded  bool
	runsErr     string
	runCursor   int
	pendingRun  string
	entries     []activity.Entry
	cursor      int
	selectedID  string
	detailTitle string
	detailCopy  string
	body        viewport.Model
	detail      viewport.Model
	loader      spinner.Model

	toastText     string
	toastLevel    types.NotificationLevel
	toastUntil    time.Time
	toastSeq      int
	pendingToasts []queuedToast
}

func NewModel(opts Options) *Model {
	logger := logging.Component(opts.Logger, "ui")
	notices := NewNotificationQueue(logger)
	managerOpts := []activity.ManagerOption{
		activity.WithNotifier(notices),
		activity.WithLogger(opts.Logger),
		activity.WithDescending(opts.AppState.SortDescending),
		activity.WithHighlightDelay(opts.HighlightDelay),
	}
	if opts.Clock != nil {
		managerOpts = append(managerOpts, activity.WithClock(opts.Clock))
	}
	clipboardService := opts.Clipboard
	if clipboardService == nil {
		clipboardService = defaultClipboardService{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	m := &Model{
		api:        opts.API,
		manager:    activity.NewManager(opts.Feed, managerOpts...),
		notices:    notices,
		stateStore: opts.StateStore,
		appState:   opts.AppState,
		clipboard:  clipboardService,
		logger:     logger,
		now:        now,
		mode:       uiModeRuns,
		width:      80,
		height:     24,
		pendingRun: strings.TrimSpace(opts.InitialRunID),
		body:       viewport.New(viewport.WithWidth(minViewportWidth), viewport.WithHeight(minBodyHeight)),
		detail:     viewport.New(viewport.WithWidth(minViewportWidth), viewport.WithHeight(minBodyHeight)),
		loader:     spinner.New(spinner.WithSpinner(spinner.Line), spinner.WithStyle(lipgloss.NewStyle())),
	}
	m.resize()
	return m
}

// Manager exposes the activity manager driving the timeline.
func (m *Model) Manager() *activity.Manager {
	return m.manager
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		fetchRunsCmd(m.api),
		waitForChangesCmd(m.manager),
		waitForNotificationCmd(m.notices, m.manager.Done()),
		m.loader.Tick,
	}
	if m.pendingRun != "" {
		cmds = append(cmds, m.selectRun(m.pendingRun))
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderBody()
		return m, nil
	case tea.KeyPressMsg:
		return m, m.handleKey(msg)
	case runsMsg:
		return m, m.applyRuns(msg)
	case activityChangedMsg:
		m.refreshEntries()
		return m, waitForChangesCmd(m.manager)
	case notificationMsg:
		return m, tea.Batch(m.showToast(msg.level, msg.message), waitForNotificationCmd(m.notices, m.manager.Done()))
	case documentsMsg:
		return m, m.applyDocuments(msg)
	case appStateSavedMsg:
		if msg.err != nil {
			m.logger.Warn("save preferences failed", logging.Err(msg.err))
			return m, m.showWarningToast("preferences not saved")
		}
		return m, nil
	case copyResultMsg:
		if msg.err != nil {
			return m, m.showErrorToast("copy failed: " + msg.err.Error())
		}
		return m, m.showInfoToast("copied to " + msg.method.String() + " clipboard")
	case toastExpiredMsg:
		return m, m.expireToast(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.loader, cmd = m.loader.Update(msg)
		if m.mode == uiModeTimeline && len(m.entries) == 0 {
			m.renderBody()
		}
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	key := msg.String()
	if key == "ctrl+c" || key == "q" {
		return m.quit()
	}
	switch m.mode {
	case uiModeRuns:
		return m.handleRunsKey(key)
	case uiModeTimeline:
		return m.handleTimelineKey(key)
	case uiModeDetail:
		return m.handleDetailKey(msg, key)
	}
	return nil
}

func (m *Model) handleRunsKey(key string) tea.Cmd {
	switch key {
	case "up":
		m.moveRunCursor(-1)
	case "down":
		m.moveRunCursor(1)
	case "r":
		m.status = "reloading runs"
		return fetchRunsCmd(m.api)
	case "enter":
		if m.runCursor < len(m.runs) {
			return m.selectRun(m.runs[m.runCursor].ID)
		}
	case "esc":
		if m.manager.Subject() != "" {
			m.mode = uiModeTimeline
			m.renderBody()
		}
	}
	return nil
}

func (m *Model) handleTimelineKey(key string) tea.Cmd {
	switch key {
	case "up":
		m.moveCursor(-1)
	case "down":
		m.moveCursor(1)
	case "pgup":
		m.moveCursor(-m.body.Height())
	case "pgdown":
		m.moveCursor(m.body.Height())
	case "home":
		m.moveCursor(-len(m.entries))
	case "end":
		m.moveCursor(len(m.entries))
	case "s":
		descending := m.manager.ToggleSort()
		m.appState.SortDescending = descending
		m.refreshEntries()
		return saveAppStateCmd(m.stateStore, func(s *types.AppState) { s.SortDescending = descending })
	case "r":
		if err := m.manager.Refresh(); err != nil {
			return m.showWarningToast(refreshErrorText(err))
		}
		m.status = "reconnecting"
		m.refreshEntries()
	case "enter":
		return m.openDetails()
	case "k":
		return m.loadDocuments(types.DocumentKindKnowledge)
	case "i":
		return m.loadDocuments(types.DocumentKindInstruction)
	case "y":
		return m.copySelected()
	case "esc", "backspace":
		m.mode = uiModeRuns
		m.renderBody()
	}
	return nil
}

func (m *Model) handleDetailKey(msg tea.KeyPressMsg, key string) tea.Cmd {
	switch key {
	case "esc", "backspace":
		m.mode = uiModeTimeline
		m.renderBody()
		return nil
	case "y":
		if m.detailCopy == "" {
			return nil
		}
		return copyCmd(m.clipboard, m.detailCopy)
	case "k":
		return m.loadDocuments(types.DocumentKindKnowledge)
	case "i":
		return m.loadDocuments(types.DocumentKindInstruction)
	}
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return cmd
}

func (m *Model) quit() tea.Cmd {
	m.manager.Close()
	return tea.Quit
}

func (m *Model) selectRun(runID string) tea.Cmd {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil
	}
	m.pendingRun = ""
	if err := m.manager.Select(runID); err != nil {
		return m.showErrorToast(err.Error())
	}
	m.mode = uiModeTimeline
	m.status = ""
	m.appState.TouchRun(runID)
	m.refreshEntries()
	return saveAppStateCmd(m.stateStore, func(s *types.AppState) { s.TouchRun(runID) })
}

func (m *Model) applyRuns(msg runsMsg) tea.Cmd {
	m.status = ""
	if msg.err != nil {
		m.runsErr = describeError(msg.err)
		m.logger.Warn("list runs failed", logging.Err(msg.err))
		m.renderBody()
		return m.showErrorToast("could not load runs: " + m.runsErr)
	}
	m.runs = msg.runs
	m.runsErr = ""
	m.runsLoaded = true
	if active := m.appState.ActiveRunID; active != "" {
		for i, run := range m.runs {
			if run.ID == active {
				m.runCursor = i
				break
			}
		}
	}
	if m.runCursor >= len(m.runs) {
		m.runCursor = max(0, len(m.runs)-1)
	}
	m.renderBody()
	return nil
}

func (m *Model) applyDocuments(msg documentsMsg) tea.Cmd {
	if msg.runID != m.manager.Subject() {
		return nil
	}
	m.status = ""
	if msg.err != nil {
		m.logger.Warn("load documents failed", logging.F("kind", msg.kind), logging.F("activity", msg.activityKey), logging.Err(msg.err))
		return m.showErrorToast(fmt.Sprintf("could not load %s: %s", msg.kind, describeError(msg.err)))
	}
	markdown := documentsMarkdown(msg.kind, msg.activityKey, msg.docs)
	label := "Knowledge"
	if msg.kind == types.DocumentKindInstruction {
		label = "Instructions"
	}
	m.showDetail(label+" · "+msg.activityKey, markdown, markdown)
	return nil
}

func (m *Model) openDetails() tea.Cmd {
	record, ok := m.selectedRecord()
	if !ok {
		return nil
	}
	details := activity.BuildDetails(record, m.logger)
	text, err := details.JSON()
	if err != nil {
		m.logger.Warn("encode details failed", logging.F("id", record.ID), logging.Err(err))
	}
	m.showDetail("Details · "+cleanText(record.ActivityName, false), detailsMarkdown(details), text)
	return nil
}

func (m *Model) showDetail(title, markdown, copyText string) {
	m.detailTitle = title
	m.detailCopy = copyText
	m.detail.SetContent(renderMarkdown(markdown, max(minViewportWidth, m.width-2)))
	m.detail.GotoTop()
	m.mode = uiModeDetail
}

func (m *Model) loadDocuments(kind types.DocumentKind) tea.Cmd {
	record, ok := m.selectedRecord()
	if !ok {
		return nil
	}
	key := record.Key()
	if key == "" {
		return m.showWarningToast("activity has no name to look up")
	}
	m.status = fmt.Sprintf("loading %s for %s", kind, key)
	return fetchDocumentsCmd(m.api, kind, m.manager.Subject(), key)
}

func (m *Model) copySelected() tea.Cmd {
	record, ok := m.selectedRecord()
	if !ok {
		return nil
	}
	text, err := activity.BuildDetails(record, m.logger).JSON()
	if err != nil {
		return m.showErrorToast("copy failed: " + err.Error())
	}
	return copyCmd(m.clipboard, text)
}

func (m *Model) selectedRecord() (types.ActivityRecord, bool) {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return types.ActivityRecord{}, false
	}
	return m.entries[m.cursor].Record, true
}

func (m *Model) refreshEntries() {
	m.entries = m.manager.Entries()
	m.cursor = cursorForID(m.entries, m.selectedID, m.cursor)
	if len(m.entries) > 0 {
		m.selectedID = m.entries[m.cursor].Record.ID
	} else {
		m.selectedID = ""
	}
	m.renderBody()
}

func (m *Model) moveCursor(delta int) {
	if len(m.entries) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.entries)-1)
	m.selectedID = m.entries[m.cursor].Record.ID
	m.renderBody()
}

func (m *Model) moveRunCursor(delta int) {
	if len(m.runs) == 0 {
		return
	}
	m.runCursor = min(max(m.runCursor+delta, 0), len(m.runs)-1)
	m.renderBody()
}

func (m *Model) resize() {
	width := max(minViewportWidth, m.width)
	height := max(minBodyHeight, m.height-chromeLines)
	m.body.SetWidth(width)
	m.body.SetHeight(height)
	m.detail.SetWidth(width)
	m.detail.SetHeight(height)
}

func (m *Model) renderBody() {
	var lines []string
	cursor := 0
	switch m.mode {
	case uiModeRuns:
		lines = m.runLines()
		cursor = m.runCursor
	case uiModeTimeline, uiModeDetail:
		lines = renderTimeline(m.entries, m.cursor, m.body.Width())
		if len(lines) == 0 {
			lines = []string{statusStyle.Render(m.emptyTimelineText())}
		}
		cursor = m.cursor
	}
	m.body.SetContent(strings.Join(lines, "\n"))
	m.keepVisible(cursor)
}

func (m *Model) keepVisible(line int) {
	height := m.body.Height()
	offset := m.body.YOffset()
	switch {
	case line < offset:
		m.body.SetYOffset(line)
	case line >= offset+height:
		m.body.SetYOffset(line - height + 1)
	}
}

func (m *Model) runLines() []string {
	if m.runsErr != "" {
		return []string{stateErrorStyle.Render("could not load runs: " + m.runsErr), helpStyle.Render("press r to retry")}
	}
	if !m.runsLoaded {
		return []string{m.loader.View() + " loading runs"}
	}
	if len(m.runs) == 0 {
		return []string{statusStyle.Render("No workflow runs.")}
	}
	recent := map[string]bool{}
	for _, id := range m.appState.RecentRunIDs {
		recent[id] = true
	}
	width := m.body.Width()
	lines := make([]string, 0, len(m.runs))
	for i, run := range m.runs {
		marker := "  "
		if recent[run.ID] {
			marker = "• "
		}
		status := fitColumn(string(run.Status), 10)
		id := fitColumn(cleanText(run.ID, false), 18)
		name := cleanText(run.WorkflowName, false)
		started := formatClock(activity.ParseStartedTime(run.StartedTime))
		if i == m.runCursor {
			lines = append(lines, truncateToWidth(selectedStyle.Render(marker+status+"  "+id+"  "+started+"  "+name), width))
			continue
		}
		lines = append(lines, truncateToWidth(marker+runStatusStyle(run).Render(status)+"  "+id+"  "+timeStyle.Render(started)+"  "+name, width))
	}
	return lines
}

func runStatusStyle(run types.WorkflowRun) lipgloss.Style {
	switch {
	case run.Active():
		return runActiveStyle
	case run.Status == types.WorkflowRunStatusFailed:
		return runFailedStyle
	default:
		return runDoneStyle
	}
}

func (m *Model) emptyTimelineText() string {
	switch m.manager.State() {
	case activity.StateConnecting, activity.StateRestarting:
		return m.loader.View() + " connecting to activity feed"
	case activity.StateStreaming:
		return "Waiting for activities…"
	case activity.StateClosed:
		return "Feed closed without activities. Press r to reconnect."
	case activity.StateError:
		return "Activity feed failed. Press r to retry."
	default:
		return "Select a run to watch its activities."
	}
}

func (m *Model) View() tea.View {
	width := max(minViewportWidth, m.width)
	var body string
	if m.mode == uiModeDetail {
		body = m.detail.View()
	} else {
		body = m.body.View()
	}
	lines := []string{
		truncateToWidth(m.headerLine(), width),
		dividerStyle.Render(strings.Repeat("─", width)),
		body,
		truncateToWidth(m.statusLine(), width),
	}
	if toast := m.toastLine(width); toast != "" {
		lines = append(lines, toast)
	} else {
		lines = append(lines, truncateToWidth(helpStyle.Render(m.helpText()), width))
	}
	v := tea.NewView(strings.Join(lines, "\n"))
	v.AltScreen = true
	return v
}

func (m *Model) headerLine() string {
	switch m.mode {
	case uiModeRuns:
		return headerStyle.Render("Workflow Runs")
	case uiModeDetail:
		return headerStyle.Render(m.detailTitle)
	}
	subject := m.manager.Subject()
	order := "oldest first"
	if m.manager.Descending() {
		order = "newest first"
	}
	state := m.manager.State()
	return headerStyle.Render("Flow Activities") + "  " + cleanText(subject, false) + "  " +
		stateStyle(state).Render(state.String()) + "  " + statusStyle.Render(fmt.Sprintf("%d records · %s", len(m.entries), order))
}

func stateStyle(state activity.State) lipgloss.Style {
	switch state {
	case activity.StateStreaming, activity.StateConnecting, activity.StateRestarting:
		return stateLiveStyle
	case activity.StateError:
		return stateErrorStyle
	default:
		return stateIdleStyle
	}
}

func (m *Model) statusLine() string {
	if m.status != "" {
		return statusStyle.Render(m.status)
	}
	if m.mode != uiModeRuns {
		if err := m.manager.Err(); err != nil {
			return stateErrorStyle.Render(describeError(err))
		}
	}
	return ""
}

func (m *Model) helpText() string {
	switch m.mode {
	case uiModeRuns:
		return "↑/↓ move · enter watch · r reload · esc timeline · q quit"
	case uiModeDetail:
		return "↑/↓ scroll · k knowledge · i instructions · y copy · esc back · q quit"
	default:
		return "↑/↓ move · s sort · r refresh · enter details · k knowledge · i instructions · y copy · esc runs · q quit"
	}
}

func refreshErrorText(err error) string {
	if errors.Is(err, activity.ErrSubjectRequired) {
		return "select a run first"
	}
	return err.Error()
}

// describeError renders err for operators: API errors by message and
// status, anything else by its text.
func describeError(err error) string {
	if err == nil {
		return ""
	}
	if apiErr := client.AsAPIError(err); apiErr != nil {
		return fmt.Sprintf("%s (HTTP %d)", apiErr.Message, apiErr.StatusCode)
	}
	return err.Error()
}
