package app

import (
	"context"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	xansi "github.com/charmbracelet/x/ansi"

	"mirror/internal/types"
	"mirror/internal/view"
)

type fakeController struct {
	window  []*types.Message
	turns   []*types.Turn
	meta    map[string]types.MessageMetadata
	total   int
	hasMore bool
	pinned  bool
	unread  int

	opened      []string
	closedCount int
	loadMore    int
	refreshNow  int
	jumps       int
	noted       []int
	flushes     int
}

func (f *fakeController) Open(_ context.Context, sessionID string, _ func()) *view.SessionView {
	f.opened = append(f.opened, sessionID)
	return nil
}

func (f *fakeController) CloseActive() { f.closedCount++ }

func (f *fakeController) CurrentWindow(string) []*types.Message { return f.window }
func (f *fakeController) CurrentTurns(string) []*types.Turn     { return f.turns }

func (f *fakeController) Metadata(_, messageID string) (types.MessageMetadata, bool) {
	meta, ok := f.meta[messageID]
	return meta, ok
}

func (f *fakeController) LoadMore(string) { f.loadMore++ }

func (f *fakeController) HasMore(string) bool      { return f.hasMore }
func (f *fakeController) Total(string) int         { return f.total }
func (f *fakeController) Revision(string) uint64   { return 7 }
func (f *fakeController) ForkedFrom(string) string { return "" }
func (f *fakeController) IsPinned(string) bool     { return f.pinned }
func (f *fakeController) UnreadCount(string) int   { return f.unread }

func (f *fakeController) JumpToBottom(string) {
	f.jumps++
	f.pinned = true
}

func (f *fakeController) NoteScrollDistance(_ string, rows int) { f.noted = append(f.noted, rows) }

func (f *fakeController) FlushFollow(string) bool {
	f.flushes++
	return false
}

func (f *fakeController) RefreshNow(string) { f.refreshNow++ }

type forkCall struct {
	SessionID string
	Nth       int
	Title     string
}

type fakeActions struct {
	sessions []*types.SessionInfo
	sent     []string
	rolled   []int
	forks    []forkCall
	undone   int
	created  int
}

func (f *fakeActions) ListSessions(context.Context) ([]*types.SessionInfo, error) {
	return f.sessions, nil
}

func (f *fakeActions) CreateSession(context.Context, string) (*types.SessionInfo, error) {
	f.created++
	return &types.SessionInfo{ID: "new-session"}, nil
}

func (f *fakeActions) SendMessage(_ context.Context, _, text string) error {
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeActions) Rollback(_ context.Context, _ string, turns int) error {
	f.rolled = append(f.rolled, turns)
	return nil
}

func (f *fakeActions) Fork(_ context.Context, sessionID string, nth int, title string) (*types.SessionInfo, error) {
	f.forks = append(f.forks, forkCall{SessionID: sessionID, Nth: nth, Title: title})
	return &types.SessionInfo{ID: "forked-session", ForkedFrom: sessionID}, nil
}

func (f *fakeActions) Undo(context.Context, string) error {
	f.undone++
	return nil
}

type fakeStateStore struct {
	saved   []*types.AppState
	touched []string
	recents []types.RecentSession
}

func (f *fakeStateStore) LoadAppState() (*types.AppState, error) { return &types.AppState{}, nil }

func (f *fakeStateStore) SaveAppState(state *types.AppState) error {
	f.saved = append(f.saved, state)
	return nil
}

func (f *fakeStateStore) TouchRecent(sessionID string) error {
	f.touched = append(f.touched, sessionID)
	return nil
}

func (f *fakeStateStore) Recents(int) ([]types.RecentSession, error) {
	return f.recents, nil
}

func newTestModel(ctrl *fakeController, actions *fakeActions) *Model {
	m := NewModel(ctrl, actions)
	m.resize(100, 30)
	return m
}

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

// runCmds executes commands synchronously and feeds results back through
// Update, the way the runtime would.
func runCmds(t *testing.T, m *Model, cmds []tea.Cmd) {
	t.Helper()
	for _, cmd := range cmds {
		if cmd == nil {
			continue
		}
		msg := cmd()
		if msg == nil {
			continue
		}
		_, next := m.Update(msg)
		if next != nil {
			runCmds(t, m, []tea.Cmd{next})
		}
	}
}

func TestOpenSessionRoutesThroughController(t *testing.T) {
	ctrl := &fakeController{}
	state := &fakeStateStore{}
	m := newTestModel(ctrl, &fakeActions{})
	m.state = state

	m.Update(openSessionMsg{SessionID: "sess-1"})

	if len(ctrl.opened) != 1 || ctrl.opened[0] != "sess-1" {
		t.Fatalf("controller opened = %v, want [sess-1]", ctrl.opened)
	}
	if m.sessionID != "sess-1" {
		t.Fatalf("sessionID = %q, want sess-1", m.sessionID)
	}
	if len(state.touched) != 1 || state.touched[0] != "sess-1" {
		t.Fatalf("recents touched = %v, want [sess-1]", state.touched)
	}
	if len(state.saved) == 0 || state.saved[len(state.saved)-1].LastSessionID != "sess-1" {
		t.Fatalf("app state not persisted with last session id")
	}
}

func TestToggleViewModePersists(t *testing.T) {
	ctrl := &fakeController{}
	state := &fakeStateStore{}
	m := newTestModel(ctrl, &fakeActions{})
	m.state = state
	m.sessionID = "sess-1"

	m.handleKey(keyPress('t'))
	if !m.grouped {
		t.Fatalf("expected grouped mode after toggle")
	}
	if len(state.saved) == 0 || state.saved[len(state.saved)-1].ViewMode != "grouped" {
		t.Fatalf("view mode not persisted: %+v", state.saved)
	}

	m.handleKey(keyPress('t'))
	if m.grouped {
		t.Fatalf("expected flat mode after second toggle")
	}
}

func TestLoadMoreOnlyWhenMessagesHidden(t *testing.T) {
	ctrl := &fakeController{hasMore: false}
	m := newTestModel(ctrl, &fakeActions{})
	m.sessionID = "sess-1"

	m.handleKey(keyPress('m'))
	if ctrl.loadMore != 0 {
		t.Fatalf("load more fired with nothing hidden")
	}

	ctrl.hasMore = true
	m.handleKey(keyPress('m'))
	if ctrl.loadMore != 1 {
		t.Fatalf("load more calls = %d, want 1", ctrl.loadMore)
	}
}

func TestSelectionMovesThroughWindow(t *testing.T) {
	ctrl := &fakeController{
		window: []*types.Message{
			{ID: "u1", Kind: types.MessageKindUser, Content: "one"},
			{ID: "a1", Kind: types.MessageKindAssistant, Content: "two"},
			{ID: "u2", Kind: types.MessageKindUser, Content: "three"},
		},
		total: 3,
	}
	m := newTestModel(ctrl, &fakeActions{})
	m.sessionID = "sess-1"

	m.handleKey(keyPress('['))
	if m.selectedID != "u2" {
		t.Fatalf("first [ should select last message, got %q", m.selectedID)
	}
	m.handleKey(keyPress('['))
	if m.selectedID != "a1" {
		t.Fatalf("selection = %q, want a1", m.selectedID)
	}
	m.handleKey(keyPress(']'))
	if m.selectedID != "u2" {
		t.Fatalf("selection = %q, want u2", m.selectedID)
	}
	m.handleKey(keyPress(']'))
	if m.selectedID != "u2" {
		t.Fatalf("selection should clamp at newest message, got %q", m.selectedID)
	}
}

func TestRollbackUsesTurnsAfterMetadata(t *testing.T) {
	ctrl := &fakeController{
		window: []*types.Message{
			{ID: "u1", Kind: types.MessageKindUser, Content: "first"},
		},
		meta: map[string]types.MessageMetadata{
			"u1": {TurnsAfter: 2, NthUserMessage: 1},
		},
		total: 1,
	}
	actions := &fakeActions{}
	m := newTestModel(ctrl, actions)
	m.sessionID = "sess-1"
	m.selectedID = "u1"

	cmd := m.handleKey(keyPress('x'))
	if cmd == nil {
		t.Fatalf("expected rollback command")
	}
	runCmds(t, m, []tea.Cmd{cmd})

	if len(actions.rolled) != 1 || actions.rolled[0] != 2 {
		t.Fatalf("rollback turns = %v, want [2]", actions.rolled)
	}
	if ctrl.refreshNow != 1 {
		t.Fatalf("expected immediate refresh after rollback, got %d", ctrl.refreshNow)
	}
}

func TestRollbackNoopWhenNothingAfter(t *testing.T) {
	ctrl := &fakeController{
		window: []*types.Message{
			{ID: "u1", Kind: types.MessageKindUser, Content: "only"},
		},
		meta: map[string]types.MessageMetadata{
			"u1": {TurnsAfter: 0, NthUserMessage: 1},
		},
	}
	actions := &fakeActions{}
	m := newTestModel(ctrl, actions)
	m.sessionID = "sess-1"
	m.selectedID = "u1"

	if cmd := m.handleKey(keyPress('x')); cmd != nil {
		t.Fatalf("expected no command when nothing to roll back")
	}
	if len(actions.rolled) != 0 {
		t.Fatalf("rollback should not fire: %v", actions.rolled)
	}
}

func TestForkFlowUsesUserOrdinal(t *testing.T) {
	ctrl := &fakeController{
		window: []*types.Message{
			{ID: "u2", Kind: types.MessageKindUser, Content: "fork here"},
		},
		meta: map[string]types.MessageMetadata{
			"u2": {TurnsAfter: 0, NthUserMessage: 2},
		},
	}
	actions := &fakeActions{}
	m := newTestModel(ctrl, actions)
	m.sessionID = "sess-1"
	m.selectedID = "u2"

	m.handleKey(keyPress('f'))
	if !m.composer.Active() {
		t.Fatalf("fork should open the title composer")
	}

	typeText(&m.composer, "side quest")
	m.composer.HandleKey(tea.KeyPressMsg{Code: tea.KeyEnter})
	runCmds(t, m, m.drainQueued())

	if len(actions.forks) != 1 {
		t.Fatalf("fork calls = %d, want 1", len(actions.forks))
	}
	call := actions.forks[0]
	if call.SessionID != "sess-1" || call.Nth != 2 || call.Title != "side quest" {
		t.Fatalf("fork call = %+v", call)
	}
	// The forked session becomes the active one.
	if m.sessionID != "forked-session" {
		t.Fatalf("sessionID = %q, want forked-session", m.sessionID)
	}
}

func TestForkRequiresUserMessage(t *testing.T) {
	ctrl := &fakeController{
		window: []*types.Message{
			{ID: "a1", Kind: types.MessageKindAssistant, Content: "reply"},
		},
	}
	m := newTestModel(ctrl, &fakeActions{})
	m.sessionID = "sess-1"
	m.selectedID = "a1"

	m.handleKey(keyPress('f'))
	if m.composer.Active() {
		t.Fatalf("fork composer should not open for non-user message")
	}
	if !m.statusErr {
		t.Fatalf("expected error status")
	}
}

func TestSendMessageFlow(t *testing.T) {
	ctrl := &fakeController{}
	actions := &fakeActions{}
	m := newTestModel(ctrl, actions)
	m.sessionID = "sess-1"

	m.handleKey(tea.KeyPressMsg{Code: tea.KeyEnter})
	if !m.composer.Active() {
		t.Fatalf("enter should open the composer")
	}

	typeText(&m.composer, "ship it")
	m.composer.HandleKey(tea.KeyPressMsg{Code: tea.KeyEnter})
	runCmds(t, m, m.drainQueued())

	if len(actions.sent) != 1 || actions.sent[0] != "ship it" {
		t.Fatalf("sent = %v, want [ship it]", actions.sent)
	}
	if ctrl.refreshNow != 1 {
		t.Fatalf("expected refresh after send, got %d", ctrl.refreshNow)
	}
}

func TestUndoLastTurn(t *testing.T) {
	ctrl := &fakeController{}
	actions := &fakeActions{}
	m := newTestModel(ctrl, actions)
	m.sessionID = "sess-1"

	cmd := m.handleKey(keyPress('u'))
	if cmd == nil {
		t.Fatalf("expected undo command")
	}
	runCmds(t, m, []tea.Cmd{cmd})
	if actions.undone != 1 {
		t.Fatalf("undo calls = %d, want 1", actions.undone)
	}
}

func TestJumpToBottomRepins(t *testing.T) {
	ctrl := &fakeController{total: 10}
	m := newTestModel(ctrl, &fakeActions{})
	m.sessionID = "sess-1"

	if !m.handleViewportScroll(keyPress('G')) {
		t.Fatalf("expected G to be handled")
	}
	if ctrl.jumps != 1 {
		t.Fatalf("jump calls = %d, want 1", ctrl.jumps)
	}
	if len(ctrl.noted) == 0 {
		t.Fatalf("expected scroll distance report after jump")
	}
}

func TestScrollReportsDistance(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl, &fakeActions{})
	m.sessionID = "sess-1"

	if !m.handleViewportScroll(tea.KeyPressMsg{Code: tea.KeyUp}) {
		t.Fatalf("expected up key to be handled")
	}
	if len(ctrl.noted) == 0 || ctrl.flushes == 0 {
		t.Fatalf("scroll should report distance and flush, noted=%v flushes=%d", ctrl.noted, ctrl.flushes)
	}
}

func TestStatusLineShowsUnreadWhenPaused(t *testing.T) {
	ctrl := &fakeController{pinned: false, unread: 3, total: 5}
	m := newTestModel(ctrl, &fakeActions{})
	m.sessionID = "sess-1"

	line := xansi.Strip(m.statusLine())
	if !strings.Contains(line, "follow: paused") {
		t.Fatalf("status missing paused marker: %q", line)
	}
	if !strings.Contains(line, "3 new") {
		t.Fatalf("status missing unread badge: %q", line)
	}

	ctrl.pinned = true
	line = xansi.Strip(m.statusLine())
	if !strings.Contains(line, "follow: on") {
		t.Fatalf("status missing follow marker: %q", line)
	}
}

func TestQuitClosesActiveAndPersists(t *testing.T) {
	ctrl := &fakeController{}
	state := &fakeStateStore{}
	m := newTestModel(ctrl, &fakeActions{})
	m.state = state
	m.sessionID = "sess-1"

	cmd := m.handleKey(keyPress('q'))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if ctrl.closedCount != 1 {
		t.Fatalf("active view not closed on quit")
	}
	if len(state.saved) == 0 {
		t.Fatalf("app state not saved on quit")
	}
}

func TestPickerFlowOpensChosenSession(t *testing.T) {
	ctrl := &fakeController{}
	actions := &fakeActions{
		sessions: []*types.SessionInfo{
			{ID: "sess-1", Title: "one"},
			{ID: "sess-2", Title: "two"},
		},
	}
	m := newTestModel(ctrl, actions)

	cmd := m.handleKey(keyPress('o'))
	if cmd == nil {
		t.Fatalf("expected list sessions command")
	}
	runCmds(t, m, []tea.Cmd{cmd})
	if !m.picker.Active() {
		t.Fatalf("picker should be open after sessions load")
	}

	m.handleKey(keyPress('j'))
	m.handleKey(tea.KeyPressMsg{Code: tea.KeyEnter})
	runCmds(t, m, m.drainQueued())

	if m.sessionID != "sess-2" {
		t.Fatalf("sessionID = %q, want sess-2", m.sessionID)
	}
	if len(ctrl.opened) != 1 || ctrl.opened[0] != "sess-2" {
		t.Fatalf("controller opened = %v", ctrl.opened)
	}
}

func TestPickerOrdersSessionsByRecency(t *testing.T) {
	ctrl := &fakeController{}
	actions := &fakeActions{
		sessions: []*types.SessionInfo{
			{ID: "sess-1", Title: "one"},
			{ID: "sess-2", Title: "two"},
			{ID: "sess-3", Title: "three"},
		},
	}
	m := newTestModel(ctrl, actions)
	m.state = &fakeStateStore{
		recents: []types.RecentSession{
			{SessionID: "sess-3"},
			{SessionID: "sess-2"},
		},
	}

	cmd := m.handleKey(keyPress('o'))
	runCmds(t, m, []tea.Cmd{cmd})

	got := make([]string, len(m.picker.sessions))
	for i, info := range m.picker.sessions {
		got[i] = info.ID
	}
	want := []string{"sess-3", "sess-2", "sess-1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("picker order = %v, want %v", got, want)
		}
	}
}

func TestCreateSessionFromPicker(t *testing.T) {
	ctrl := &fakeController{}
	actions := &fakeActions{}
	m := newTestModel(ctrl, actions)

	m.openPicker(nil)
	m.handleKey(keyPress('n'))
	runCmds(t, m, m.drainQueued())

	if actions.created != 1 {
		t.Fatalf("create calls = %d, want 1", actions.created)
	}
	if m.sessionID != "new-session" {
		t.Fatalf("sessionID = %q, want new-session", m.sessionID)
	}
}
