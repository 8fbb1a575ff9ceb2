package view

import (
	"context"
	"sync"
	"time"

	"mirror/internal/logging"
	"mirror/internal/types"
)

// Transport is the remote authority as the engine sees it: a pollable
// revision counter and a snapshot fetch, both idempotent.
type Transport interface {
	GetRevision(ctx context.Context, sessionID string) (uint64, error)
	GetSnapshot(ctx context.Context, sessionID string) (*types.Snapshot, error)
}

// RevisionStreamer is an optional transport upgrade: a push stream of
// revision events. The view falls back to polling when it is absent or the
// stream cannot be opened.
type RevisionStreamer interface {
	WatchRevisions(ctx context.Context, sessionID string) (<-chan types.RevisionEvent, func(), error)
}

type Options struct {
	RefreshInterval time.Duration
	PollInterval    time.Duration
	PageSize        int
	UnpinThreshold  int
	RepinThreshold  int
	Logger          logging.Logger
}

func (o Options) withDefaults() Options {
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = 80 * time.Millisecond
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 250 * time.Millisecond
	}
	if o.PageSize <= 0 {
		o.PageSize = defaultWindowPageSize
	}
	if o.Logger == nil {
		o.Logger = logging.Nop()
	}
	return o
}

// SessionView owns one session's mirror and everything derived from it.
// The refresh scheduler's loop is the only writer; the presentation layer
// reads through the accessor methods.
type SessionView struct {
	sessionID string
	transport Transport
	opts      Options
	logger    logging.Logger

	scheduler  *RefreshScheduler
	watcher    *RevisionWatcher
	reconciler *Reconciler
	ctx        context.Context
	cancel     context.CancelFunc

	mu       sync.RWMutex
	mirror   *Mirror
	window   *WindowManager
	follow   *FollowController
	turns    []*types.Turn
	meta     map[string]types.MessageMetadata
	onUpdate func()
}

func NewSessionView(sessionID string, transport Transport, opts Options) *SessionView {
	opts = opts.withDefaults()
	logger := opts.Logger.With(logging.F("session_id", sessionID))
	v := &SessionView{
		sessionID:  sessionID,
		transport:  transport,
		opts:       opts,
		logger:     logger,
		watcher:    NewRevisionWatcher(),
		reconciler: NewReconciler(logger),
		mirror:     NewMirror(),
		window:     NewWindowManager(opts.PageSize, logger),
		follow:     NewFollowController(opts.UnpinThreshold, opts.RepinThreshold),
	}
	v.scheduler = NewRefreshScheduler(opts.RefreshInterval, v.pass)
	return v
}

func (v *SessionView) SessionID() string {
	if v == nil {
		return ""
	}
	return v.sessionID
}

// SetOnUpdate registers a callback invoked after every pass that changed
// the mirror or window. Must be set before Start.
func (v *SessionView) SetOnUpdate(fn func()) {
	if v == nil {
		return
	}
	v.onUpdate = fn
}

// Start begins observing the session's revision and schedules the initial
// load. Observation prefers the transport's revision stream and degrades to
// interval polling.
func (v *SessionView) Start(ctx context.Context) {
	if v == nil || v.transport == nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	v.ctx = ctx
	v.cancel = cancel
	v.scheduler.Signal(ctx)
	go v.observe(ctx)
}

// Close cancels the observation goroutine and the in-flight scheduler loop.
// It blocks until the loop has exited, so a stale pass can never write into
// whatever view replaces this one.
func (v *SessionView) Close() {
	if v == nil {
		return
	}
	if v.cancel != nil {
		v.cancel()
	}
	v.scheduler.Wait()
}

func (v *SessionView) observe(ctx context.Context) {
	if streamer, ok := v.transport.(RevisionStreamer); ok {
		events, cancel, err := streamer.WatchRevisions(ctx, v.sessionID)
		if err == nil {
			defer cancel()
			v.logger.Debug("revision_stream_open")
			for {
				select {
				case <-ctx.Done():
					return
				case event, ok := <-events:
					if !ok {
						v.logger.Debug("revision_stream_closed")
						v.poll(ctx)
						return
					}
					if v.watcher.Observe(event.Revision) {
						v.scheduler.Signal(ctx)
					}
				}
			}
		}
		v.logger.Debug("revision_stream_unavailable", logging.F("error", err))
	}
	v.poll(ctx)
}

func (v *SessionView) poll(ctx context.Context) {
	ticker := time.NewTicker(v.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			revision, err := v.transport.GetRevision(ctx, v.sessionID)
			if err != nil {
				// Transient transport failures are expected mid-stream;
				// the next tick retries.
				v.logger.Debug("revision_poll_error", logging.F("error", err))
				continue
			}
			if v.watcher.Observe(revision) {
				v.scheduler.Signal(ctx)
			}
		}
	}
}

// pass is one reconciliation pass. The snapshot is fetched before any
// mutation so the pass itself never blocks on I/O while holding the mirror.
func (v *SessionView) pass(ctx context.Context) {
	snapshot, err := v.transport.GetSnapshot(ctx, v.sessionID)
	if err != nil {
		v.logger.Debug("snapshot_fetch_error", logging.F("error", err))
		return
	}
	if ctx.Err() != nil || snapshot == nil {
		return
	}

	v.mu.Lock()
	result := v.reconciler.Apply(v.mirror, snapshot)
	total := v.mirror.Len()
	switch result.Path {
	case ReconcileNoop:
	case ReconcileAppend:
		v.window.ApplyAppend(result.Appended, total)
		v.follow.NoteAppend(result.Appended)
	case ReconcileReplace:
		v.window.ApplyReplace(total)
	}
	if result.Path != ReconcileNoop {
		// Patch-only passes append nothing but still render new content,
		// so they count toward the unpin gate.
		v.follow.NoteAdvance()
		v.rebuildDerivedLocked()
	}
	v.mu.Unlock()

	if result.Path != ReconcileNoop {
		v.logger.Debug("reconcile_pass",
			logging.F("path", result.Path),
			logging.F("appended", result.Appended),
			logging.F("patched", result.Patched),
			logging.F("revision", snapshot.Revision),
		)
		if v.onUpdate != nil {
			v.onUpdate()
		}
	}
}

// rebuildDerivedLocked recomputes turns from the windowed slice and
// metadata from the full mirror, so user-message ordinals stay absolute
// even when the window hides older history. Callers hold v.mu.
func (v *SessionView) rebuildDerivedLocked() {
	windowed := v.mirror.Tail(v.window.Displayed())
	inProgress := false
	if n := len(windowed); n > 0 && windowed[n-1] != nil {
		inProgress = windowed[n-1].InProgress
	}
	v.turns = BuildTurns(windowed, nil, inProgress)
	v.meta = ComputeMetadata(v.mirror.messages)
}

// CurrentWindow returns the windowed message slice, already trimmed to
// displayedCount. The slice is copied out of the mirror's backing array:
// the scheduler loop patches slots in place, and the caller iterates
// without holding the lock.
func (v *SessionView) CurrentWindow() []*types.Message {
	if v == nil {
		return nil
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	windowed := v.mirror.Tail(v.window.Displayed())
	if len(windowed) == 0 {
		return nil
	}
	out := make([]*types.Message, len(windowed))
	copy(out, windowed)
	return out
}

// CurrentTurns returns the grouped view of the current window. An empty
// result with a non-empty window tells the caller to fall back to the flat
// list rather than render a blank pane.
func (v *SessionView) CurrentTurns() []*types.Turn {
	if v == nil {
		return nil
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.turns
}

func (v *SessionView) Metadata(messageID string) (types.MessageMetadata, bool) {
	if v == nil {
		return types.MessageMetadata{}, false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	meta, ok := v.meta[messageID]
	return meta, ok
}

func (v *SessionView) LoadMore() {
	if v == nil {
		return
	}
	v.mu.Lock()
	v.window.LoadMore(v.mirror.Len())
	v.rebuildDerivedLocked()
	v.mu.Unlock()
}

func (v *SessionView) HasMore() bool {
	if v == nil {
		return false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.window.HasMore(v.mirror.Len())
}

func (v *SessionView) Total() int {
	if v == nil {
		return 0
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mirror.Len()
}

func (v *SessionView) Revision() uint64 {
	if v == nil {
		return 0
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mirror.Revision()
}

func (v *SessionView) ForkedFrom() string {
	if v == nil {
		return ""
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mirror.ForkedFrom()
}

func (v *SessionView) IsPinned() bool {
	if v == nil {
		return false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.follow.IsPinned()
}

func (v *SessionView) UnreadCount() int {
	if v == nil {
		return 0
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.follow.UnreadCount()
}

func (v *SessionView) JumpToBottom() {
	if v == nil {
		return
	}
	v.mu.Lock()
	v.follow.JumpToBottom()
	v.mu.Unlock()
}

// NoteScrollDistance records the viewport's distance from the bottom; the
// threshold math runs on the next FlushFollow.
func (v *SessionView) NoteScrollDistance(rows int) {
	if v == nil {
		return
	}
	v.mu.Lock()
	v.follow.NoteDistance(rows)
	v.mu.Unlock()
}

// FlushFollow processes the coalesced geometry signal once. Presentation
// calls this at most once per frame; it reports whether the pinned state
// changed.
func (v *SessionView) FlushFollow() bool {
	if v == nil {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.follow.Flush()
}

// RefreshNow schedules an immediate pass outside the revision signal path,
// used right after a user-initiated mutation such as rollback or fork.
func (v *SessionView) RefreshNow() {
	if v == nil || v.ctx == nil {
		return
	}
	v.scheduler.Signal(v.ctx)
}
