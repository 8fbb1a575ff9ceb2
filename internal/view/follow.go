package view

// FollowController decides whether the transcript view stays pinned to the
// newest content. Unpinning requires a coarse distance from the bottom while
// content is advancing, so layout jitter near the bottom cannot be mistaken
// for the user scrolling away; repinning uses a finer threshold. Geometry
// signals are coalesced and processed at most once per Flush.
type FollowController struct {
	unpinThreshold int
	repinThreshold int

	pinned    bool
	unread    int
	advancing bool

	pendingDistance int
	hasPending      bool
}

func NewFollowController(unpinThreshold, repinThreshold int) *FollowController {
	if unpinThreshold <= 0 {
		unpinThreshold = 200
	}
	if repinThreshold <= 0 {
		repinThreshold = 56
	}
	if repinThreshold > unpinThreshold {
		repinThreshold = unpinThreshold
	}
	return &FollowController{
		unpinThreshold: unpinThreshold,
		repinThreshold: repinThreshold,
		pinned:         true,
	}
}

func (f *FollowController) IsPinned() bool {
	return f != nil && f.pinned
}

func (f *FollowController) UnreadCount() int {
	if f == nil {
		return 0
	}
	return f.unread
}

// NoteDistance records the latest viewport distance from the bottom. Only
// the most recent value survives until the next Flush.
func (f *FollowController) NoteDistance(rows int) {
	if f == nil {
		return
	}
	if rows < 0 {
		rows = 0
	}
	f.pendingDistance = rows
	f.hasPending = true
}

// NoteAppend reports newly appended messages. While unpinned they accumulate
// as unread instead of moving the viewport.
func (f *FollowController) NoteAppend(count int) {
	if f == nil || count <= 0 {
		return
	}
	f.advancing = true
	if !f.pinned {
		f.unread += count
	}
}

// NoteAdvance marks content as rendering without attributing unread
// messages. A streaming reply patches an in-progress message in place, so
// it appends nothing; that still has to arm the unpin gate.
func (f *FollowController) NoteAdvance() {
	if f == nil {
		return
	}
	f.advancing = true
}

// JumpToBottom is the explicit user action: pin regardless of thresholds.
func (f *FollowController) JumpToBottom() {
	if f == nil {
		return
	}
	f.pinned = true
	f.unread = 0
}

// Flush applies the coalesced geometry signal. It returns true when the
// pinned state changed.
func (f *FollowController) Flush() bool {
	if f == nil || !f.hasPending {
		return false
	}
	distance := f.pendingDistance
	f.hasPending = false
	advancing := f.advancing
	f.advancing = false

	if f.pinned {
		if advancing && distance >= f.unpinThreshold {
			f.pinned = false
			return true
		}
		return false
	}
	if distance <= f.repinThreshold {
		f.pinned = true
		f.unread = 0
		return true
	}
	return false
}
