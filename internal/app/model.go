package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"mirror/internal/logging"
	"mirror/internal/types"
	"mirror/internal/view"
)

const (
	minContentWidth  = 20
	minContentHeight = 4
	composerHeight   = 3
)

// transcriptController is the slice of the session view registry the
// presentation layer drives. All read methods answer for the active
// session only and go quiet when another session takes over.
type transcriptController interface {
	Open(ctx context.Context, sessionID string, onUpdate func()) *view.SessionView
	CloseActive()
	CurrentWindow(sessionID string) []*types.Message
	CurrentTurns(sessionID string) []*types.Turn
	Metadata(sessionID, messageID string) (types.MessageMetadata, bool)
	LoadMore(sessionID string)
	HasMore(sessionID string) bool
	Total(sessionID string) int
	Revision(sessionID string) uint64
	ForkedFrom(sessionID string) string
	IsPinned(sessionID string) bool
	UnreadCount(sessionID string) int
	JumpToBottom(sessionID string)
	NoteScrollDistance(sessionID string, rows int)
	FlushFollow(sessionID string) bool
	RefreshNow(sessionID string)
}

// sessionActions is the mutating half of the daemon client.
type sessionActions interface {
	ListSessions(ctx context.Context) ([]*types.SessionInfo, error)
	CreateSession(ctx context.Context, title string) (*types.SessionInfo, error)
	SendMessage(ctx context.Context, sessionID, text string) error
	Rollback(ctx context.Context, sessionID string, turns int) error
	Fork(ctx context.Context, sessionID string, nthUserMessage int, title string) (*types.SessionInfo, error)
	Undo(ctx context.Context, sessionID string) error
}

type appStateStore interface {
	LoadAppState() (*types.AppState, error)
	SaveAppState(state *types.AppState) error
	TouchRecent(sessionID string) error
	Recents(limit int) ([]types.RecentSession, error)
}

type transcriptSyncedMsg struct{}

type openSessionMsg struct {
	SessionID string
}

type sessionsLoadedMsg struct {
	Sessions []*types.SessionInfo
	Err      error
}

type sessionCreatedMsg struct {
	Info *types.SessionInfo
	Err  error
}

type actionDoneMsg struct {
	Label   string
	Refresh bool
	Err     error
}

type Model struct {
	ctrl    transcriptController
	actions sessionActions
	state   appStateStore
	logger  logging.Logger

	ctx       context.Context
	notify    func()
	sessionID string
	startID   string

	width    int
	height   int
	ready    bool
	viewport viewport.Model

	grouped    bool
	selectedID string
	status     string
	statusErr  bool

	composer composerController
	picker   sessionPickerController
	queued   []tea.Cmd
}

type ModelOption func(*Model)

func WithAppState(state appStateStore) ModelOption {
	return func(m *Model) { m.state = state }
}

func WithLogger(logger logging.Logger) ModelOption {
	return func(m *Model) { m.logger = logger }
}

func WithGroupedView(grouped bool) ModelOption {
	return func(m *Model) { m.grouped = grouped }
}

// WithStartSession opens the given session on startup instead of the
// session picker.
func WithStartSession(sessionID string) ModelOption {
	return func(m *Model) { m.startID = sessionID }
}

func NewModel(ctrl transcriptController, actions sessionActions, opts ...ModelOption) *Model {
	m := &Model{
		ctrl:    ctrl,
		actions: actions,
		logger:  logging.Nop(),
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetNotify installs the callback that forwards reconciliation updates
// into the running program. It must be set before the program starts.
func (m *Model) SetNotify(fn func()) {
	m.notify = fn
}

func (m *Model) Init() tea.Cmd {
	if m.startID != "" {
		id := m.startID
		return func() tea.Msg { return openSessionMsg{SessionID: id} }
	}
	return m.listSessionsCmd()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case transcriptSyncedMsg:
		m.refreshContent()

	case openSessionMsg:
		m.openSession(msg.SessionID)

	case sessionsLoadedMsg:
		if msg.Err != nil {
			m.setStatusError("list sessions: " + msg.Err.Error())
			break
		}
		m.openPicker(msg.Sessions)

	case sessionCreatedMsg:
		if msg.Err != nil {
			m.setStatusError("create session: " + msg.Err.Error())
			break
		}
		m.setStatusInfo("session created")
		m.openSession(msg.Info.ID)

	case actionDoneMsg:
		if msg.Err != nil {
			m.setStatusError(msg.Label + ": " + msg.Err.Error())
			break
		}
		m.setStatusInfo(msg.Label)
		if msg.Refresh && m.sessionID != "" {
			m.ctrl.RefreshNow(m.sessionID)
		}

	case tea.PasteMsg:
		m.composer.HandlePaste(msg)

	case tea.KeyMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	cmds = append(cmds, m.drainQueued()...)
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.picker.Active() {
		m.picker.HandleKey(msg)
		return nil
	}
	if m.composer.Active() {
		m.composer.HandleKey(msg)
		if !m.composer.Active() {
			m.layout()
		}
		return nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m.quit()
	case "o":
		return m.listSessionsCmd()
	case "t":
		m.grouped = !m.grouped
		m.persistState()
		m.refreshContent()
		return nil
	case "m":
		if m.sessionID != "" && m.ctrl.HasMore(m.sessionID) {
			m.ctrl.LoadMore(m.sessionID)
			m.refreshContent()
		}
		return nil
	case "r":
		if m.sessionID != "" {
			m.ctrl.RefreshNow(m.sessionID)
		}
		return nil
	case "enter", "i":
		return m.openComposer()
	case "[":
		m.moveSelection(-1)
		return nil
	case "]":
		m.moveSelection(1)
		return nil
	case "esc":
		m.selectedID = ""
		m.refreshContent()
		return nil
	case "c":
		m.copySelected()
		return nil
	case "f":
		return m.forkAtSelected()
	case "x":
		return m.rollbackAfterSelected()
	case "u":
		return m.undoLastTurn()
	}

	if m.handleViewportScroll(msg) {
		return nil
	}
	return nil
}

func (m *Model) handleViewportScroll(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "up":
		m.viewport.ScrollUp(1)
	case "down":
		m.viewport.ScrollDown(1)
	case "pgup":
		m.viewport.PageUp()
	case "pgdown", "space":
		m.viewport.PageDown()
	case "ctrl+u":
		m.viewport.HalfPageUp()
	case "ctrl+d":
		m.viewport.HalfPageDown()
	case "g", "home":
		m.viewport.GotoTop()
	case "G", "shift+g", "end":
		m.jumpToBottom()
		return true
	default:
		return false
	}
	m.reportScroll()
	return true
}

func (m *Model) jumpToBottom() {
	if m.sessionID != "" {
		m.ctrl.JumpToBottom(m.sessionID)
	}
	m.viewport.GotoBottom()
	m.reportScroll()
}

// reportScroll feeds the viewport geometry to the follow controller and
// re-snaps to the bottom when the flush repins.
func (m *Model) reportScroll() {
	if m.sessionID == "" {
		return
	}
	m.ctrl.NoteScrollDistance(m.sessionID, m.scrollDistance())
	if m.ctrl.FlushFollow(m.sessionID) && m.ctrl.IsPinned(m.sessionID) {
		m.viewport.GotoBottom()
	}
}

// scrollDistance converts the viewport position to rows above the bottom.
func (m *Model) scrollDistance() int {
	hidden := m.viewport.TotalLineCount() - m.viewport.VisibleLineCount()
	if hidden <= 0 {
		return 0
	}
	offset := int(math.Round(m.viewport.ScrollPercent() * float64(hidden)))
	return hidden - offset
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	if !m.ready {
		m.viewport = viewport.New()
		m.ready = true
	}
	m.layout()
	m.refreshContent()
}

func (m *Model) layout() {
	if !m.ready {
		return
	}
	contentWidth := max(minContentWidth, m.width)
	contentHeight := m.height - 2 // header + status
	if m.composer.Active() {
		contentHeight -= composerHeight
	}
	contentHeight = max(minContentHeight, contentHeight)
	m.viewport.SetWidth(contentWidth)
	m.viewport.SetHeight(contentHeight)
}

// refreshContent re-renders the visible window into the viewport. When the
// view is pinned it stays glued to the bottom across content growth.
func (m *Model) refreshContent() {
	if !m.ready {
		return
	}
	if m.sessionID == "" {
		m.viewport.SetContent(helpStyle.Render("no session open — press o to pick one"))
		return
	}
	pinned := m.ctrl.IsPinned(m.sessionID)
	window := m.ctrl.CurrentWindow(m.sessionID)
	turns := m.ctrl.CurrentTurns(m.sessionID)
	hidden := m.ctrl.Total(m.sessionID) - len(window)
	if hidden < 0 {
		hidden = 0
	}
	content := renderTranscript(transcriptInput{
		Messages:   window,
		Turns:      turns,
		Grouped:    m.grouped,
		Width:      m.viewport.Width(),
		Hidden:     hidden,
		SelectedID: m.selectedID,
	})
	m.viewport.SetContent(content)
	if pinned {
		m.viewport.GotoBottom()
	}
	m.reportScroll()
}

func (m *Model) openSession(sessionID string) {
	if sessionID == "" {
		return
	}
	m.sessionID = sessionID
	m.selectedID = ""
	m.setStatusInfo("opened " + sessionID)
	m.ctrl.Open(m.ctx, sessionID, m.notify)
	m.persistState()
	if m.state != nil {
		if err := m.state.TouchRecent(sessionID); err != nil {
			m.logger.Warn("touch_recent_failed", logging.F("error", err))
		}
	}
	m.refreshContent()
}

func (m *Model) persistState() {
	if m.state == nil {
		return
	}
	mode := "flat"
	if m.grouped {
		mode = "grouped"
	}
	err := m.state.SaveAppState(&types.AppState{
		LastSessionID: m.sessionID,
		ViewMode:      mode,
	})
	if err != nil {
		m.logger.Warn("save_app_state_failed", logging.F("error", err))
	}
}

func (m *Model) quit() tea.Cmd {
	m.persistState()
	m.ctrl.CloseActive()
	return tea.Quit
}

func (m *Model) openPicker(sessions []*types.SessionInfo) {
	m.picker.Open(m.orderByRecency(sessions), m.sessionID,
		func(id string) {
			m.queueMsg(openSessionMsg{SessionID: id})
		},
		func() {
			m.queueCmd(m.createSessionCmd())
		})
}

// orderByRecency floats recently opened sessions to the top of the picker,
// most recent first. Sessions never opened on this machine keep the
// daemon's order below them.
func (m *Model) orderByRecency(sessions []*types.SessionInfo) []*types.SessionInfo {
	if m.state == nil || len(sessions) < 2 {
		return sessions
	}
	recents, err := m.state.Recents(0)
	if err != nil || len(recents) == 0 {
		return sessions
	}
	rank := make(map[string]int, len(recents))
	for i, entry := range recents {
		rank[entry.SessionID] = i + 1
	}
	ordered := append([]*types.SessionInfo{}, sessions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := rank[ordered[i].ID], rank[ordered[j].ID]
		if ri == 0 || rj == 0 {
			return rj == 0 && ri != 0
		}
		return ri < rj
	})
	return ordered
}

func (m *Model) openComposer() tea.Cmd {
	if m.sessionID == "" {
		m.setStatusError("open a session first")
		return nil
	}
	sessionID := m.sessionID
	m.composer.OpenWith("say> ", func(text string) {
		m.queueCmd(m.sendMessageCmd(sessionID, text))
	})
	m.layout()
	m.refreshContent()
	return nil
}

func (m *Model) moveSelection(delta int) {
	window := m.ctrl.CurrentWindow(m.sessionID)
	if len(window) == 0 {
		return
	}
	idx := -1
	for i, msg := range window {
		if msg.ID == m.selectedID {
			idx = i
			break
		}
	}
	if idx < 0 {
		if delta < 0 {
			idx = len(window) - 1
		} else {
			idx = 0
		}
	} else {
		idx += delta
		if idx < 0 {
			idx = 0
		}
		if idx >= len(window) {
			idx = len(window) - 1
		}
	}
	m.selectedID = window[idx].ID
	m.refreshContent()
}

func (m *Model) selectedMessage() *types.Message {
	if m.selectedID == "" {
		return nil
	}
	for _, msg := range m.ctrl.CurrentWindow(m.sessionID) {
		if msg.ID == m.selectedID {
			return msg
		}
	}
	return nil
}

func (m *Model) copySelected() {
	msg := m.selectedMessage()
	if msg == nil {
		m.setStatusError("no message selected")
		return
	}
	text := msg.Content
	if msg.Kind == types.MessageKindThinking {
		text = msg.Thinking
	}
	if msg.Kind == types.MessageKindTool && msg.ToolOutput != "" {
		if text != "" {
			text += "\n"
		}
		text += msg.ToolOutput
	}
	if _, err := copyTextToClipboard(text); err != nil {
		m.setStatusError("copy failed: " + err.Error())
		return
	}
	m.setStatusInfo("copied message")
}

// forkAtSelected creates a new session containing everything before the
// selected user message, then switches to it.
func (m *Model) forkAtSelected() tea.Cmd {
	msg := m.selectedMessage()
	if msg == nil || msg.Kind != types.MessageKindUser {
		m.setStatusError("select a user message to fork from")
		return nil
	}
	meta, ok := m.ctrl.Metadata(m.sessionID, msg.ID)
	if !ok {
		m.setStatusError("no metadata for selected message")
		return nil
	}
	sessionID := m.sessionID
	nth := meta.NthUserMessage
	m.composer.OpenWith("fork title> ", func(title string) {
		m.queueCmd(m.forkCmd(sessionID, nth, title))
	})
	m.layout()
	return nil
}

// rollbackAfterSelected drops every turn after the selected message's turn.
func (m *Model) rollbackAfterSelected() tea.Cmd {
	msg := m.selectedMessage()
	if msg == nil {
		m.setStatusError("no message selected")
		return nil
	}
	meta, ok := m.ctrl.Metadata(m.sessionID, msg.ID)
	if !ok {
		m.setStatusError("no metadata for selected message")
		return nil
	}
	if meta.TurnsAfter == 0 {
		m.setStatusInfo("nothing to roll back")
		return nil
	}
	return m.rollbackCmd(m.sessionID, meta.TurnsAfter)
}

func (m *Model) undoLastTurn() tea.Cmd {
	if m.sessionID == "" {
		m.setStatusError("open a session first")
		return nil
	}
	sessionID := m.sessionID
	ctx := m.ctx
	return func() tea.Msg {
		err := m.actions.Undo(ctx, sessionID)
		return actionDoneMsg{Label: "undid last turn", Refresh: true, Err: err}
	}
}

func (m *Model) listSessionsCmd() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		sessions, err := m.actions.ListSessions(ctx)
		return sessionsLoadedMsg{Sessions: sessions, Err: err}
	}
}

func (m *Model) createSessionCmd() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		info, err := m.actions.CreateSession(ctx, "")
		return sessionCreatedMsg{Info: info, Err: err}
	}
}

func (m *Model) sendMessageCmd(sessionID, text string) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		err := m.actions.SendMessage(ctx, sessionID, text)
		return actionDoneMsg{Label: "message sent", Refresh: true, Err: err}
	}
}

func (m *Model) rollbackCmd(sessionID string, turns int) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		err := m.actions.Rollback(ctx, sessionID, turns)
		label := fmt.Sprintf("rolled back %d turn(s)", turns)
		return actionDoneMsg{Label: label, Refresh: true, Err: err}
	}
}

func (m *Model) forkCmd(sessionID string, nthUserMessage int, title string) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		info, err := m.actions.Fork(ctx, sessionID, nthUserMessage, title)
		return sessionCreatedMsg{Info: info, Err: err}
	}
}

func (m *Model) queueCmd(cmd tea.Cmd) {
	if cmd != nil {
		m.queued = append(m.queued, cmd)
	}
}

func (m *Model) queueMsg(msg tea.Msg) {
	m.queued = append(m.queued, func() tea.Msg { return msg })
}

func (m *Model) drainQueued() []tea.Cmd {
	queued := m.queued
	m.queued = nil
	return queued
}

func (m *Model) setStatusInfo(text string) {
	m.status = text
	m.statusErr = false
}

func (m *Model) setStatusError(text string) {
	m.status = text
	m.statusErr = true
}

func (m *Model) View() tea.View {
	if !m.ready {
		v := tea.NewView("loading…")
		v.AltScreen = true
		return v
	}
	var b strings.Builder
	b.WriteString(m.headerLine())
	b.WriteString("\n")
	if m.picker.Active() {
		b.WriteString(padToHeight(m.picker.View(), m.viewport.Height()))
	} else {
		b.WriteString(m.viewport.View())
	}
	b.WriteString("\n")
	if m.composer.Active() {
		b.WriteString(m.composer.View(m.width))
		b.WriteString("\n")
	}
	b.WriteString(m.statusLine())

	v := tea.NewView(b.String())
	v.AltScreen = true
	return v
}

func (m *Model) headerLine() string {
	title := headerStyle.Render("mirror")
	if m.sessionID != "" {
		title += statusStyle.Render(" · " + m.sessionID)
		if from := m.ctrl.ForkedFrom(m.sessionID); from != "" {
			title += metaStyle.Render(" ⑂ from " + from)
		}
		title += statusStyle.Render(fmt.Sprintf(" · rev %d", m.ctrl.Revision(m.sessionID)))
	}
	return title
}

func (m *Model) statusLine() string {
	left := m.status
	style := statusStyle
	if m.statusErr {
		style = errorStatusStyle
	}
	if left == "" && m.sessionID != "" {
		shown := len(m.ctrl.CurrentWindow(m.sessionID))
		left = fmt.Sprintf("%d/%d messages", shown, m.ctrl.Total(m.sessionID))
	}

	middle := ""
	if m.sessionID != "" {
		if m.ctrl.IsPinned(m.sessionID) {
			middle = statusStyle.Render("follow: on")
		} else {
			middle = followPausedStyle.Render("follow: paused")
			if unread := m.ctrl.UnreadCount(m.sessionID); unread > 0 {
				middle += " " + unreadBadgeStyle.Render(fmt.Sprintf(" %d new ", unread))
			}
		}
	}

	right := helpStyle.Render("o sessions · t view · m more · enter say · q quit")

	line := style.Render(left)
	if middle != "" {
		line += "  " + middle
	}
	gap := m.width - visibleWidth(line) - visibleWidth(right) - 1
	if gap < 1 {
		gap = 1
	}
	return line + strings.Repeat(" ", gap) + right
}

func padToHeight(content string, height int) string {
	lines := strings.Count(content, "\n") + 1
	if lines >= height {
		return content
	}
	return content + strings.Repeat("\n", height-lines)
}

func visibleWidth(s string) int {
	return runewidth.StringWidth(xansi.Strip(s))
}
