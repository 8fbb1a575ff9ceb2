package view

import (
	"context"
	"sync"

	"mirror/internal/types"
)

// Registry holds the single active session view and routes the
// presentation-facing API by session id. Opening a session cancels the
// previous view completely; mirrors are never shared or merged across
// sessions.
type Registry struct {
	transport Transport
	opts      Options

	mu     sync.Mutex
	active *SessionView
}

func NewRegistry(transport Transport, opts Options) *Registry {
	return &Registry{transport: transport, opts: opts.withDefaults()}
}

// Open switches the registry to sessionID. The old view's scheduler loop and
// observation goroutine are cancelled before the new view starts, so partial
// work from the old session can never land in the new mirror.
func (r *Registry) Open(ctx context.Context, sessionID string, onUpdate func()) *SessionView {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	previous := r.active
	r.active = nil
	r.mu.Unlock()
	previous.Close()

	next := NewSessionView(sessionID, r.transport, r.opts)
	next.SetOnUpdate(onUpdate)
	next.Start(ctx)

	r.mu.Lock()
	r.active = next
	r.mu.Unlock()
	return next
}

// CloseActive tears down the current view, if any.
func (r *Registry) CloseActive() {
	if r == nil {
		return
	}
	r.mu.Lock()
	previous := r.active
	r.active = nil
	r.mu.Unlock()
	previous.Close()
}

func (r *Registry) view(sessionID string) *SessionView {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil || r.active.SessionID() != sessionID {
		return nil
	}
	return r.active
}

func (r *Registry) CurrentWindow(sessionID string) []*types.Message {
	return r.view(sessionID).CurrentWindow()
}

func (r *Registry) CurrentTurns(sessionID string) []*types.Turn {
	return r.view(sessionID).CurrentTurns()
}

func (r *Registry) Metadata(sessionID, messageID string) (types.MessageMetadata, bool) {
	return r.view(sessionID).Metadata(messageID)
}

func (r *Registry) LoadMore(sessionID string) {
	r.view(sessionID).LoadMore()
}

func (r *Registry) HasMore(sessionID string) bool {
	return r.view(sessionID).HasMore()
}

func (r *Registry) IsPinned(sessionID string) bool {
	return r.view(sessionID).IsPinned()
}

func (r *Registry) UnreadCount(sessionID string) int {
	return r.view(sessionID).UnreadCount()
}

func (r *Registry) JumpToBottom(sessionID string) {
	r.view(sessionID).JumpToBottom()
}

func (r *Registry) Total(sessionID string) int {
	return r.view(sessionID).Total()
}

func (r *Registry) Revision(sessionID string) uint64 {
	return r.view(sessionID).Revision()
}

func (r *Registry) ForkedFrom(sessionID string) string {
	return r.view(sessionID).ForkedFrom()
}

func (r *Registry) NoteScrollDistance(sessionID string, rows int) {
	r.view(sessionID).NoteScrollDistance(rows)
}

func (r *Registry) FlushFollow(sessionID string) bool {
	return r.view(sessionID).FlushFollow()
}

func (r *Registry) RefreshNow(sessionID string) {
	r.view(sessionID).RefreshNow()
}
