package view

import "testing"

func TestFollowStartsPinned(t *testing.T) {
	f := NewFollowController(200, 56)
	if !f.IsPinned() {
		t.Fatalf("expected pinned initially")
	}
}

func TestFollowHysteresis(t *testing.T) {
	f := NewFollowController(200, 56)

	// Scroll exactly to the unpin threshold while content is rendering.
	f.NoteAppend(1)
	f.NoteDistance(200)
	if !f.Flush() {
		t.Fatalf("expected transition to unpinned")
	}
	if f.IsPinned() {
		t.Fatalf("expected unpinned at the unpin threshold")
	}

	// Back within the repin threshold.
	f.NoteDistance(56)
	if !f.Flush() {
		t.Fatalf("expected transition back to pinned")
	}
	if !f.IsPinned() {
		t.Fatalf("expected pinned within the repin threshold")
	}
	if f.UnreadCount() != 0 {
		t.Fatalf("expected unread cleared on repin, got %d", f.UnreadCount())
	}
}

func TestFollowJitterDoesNotUnpin(t *testing.T) {
	f := NewFollowController(200, 56)
	f.NoteAppend(1)
	f.NoteDistance(150)
	if f.Flush() {
		t.Fatalf("distance under threshold must not unpin")
	}
	if !f.IsPinned() {
		t.Fatalf("expected still pinned")
	}
}

func TestFollowUnpinsDuringInPlaceStreaming(t *testing.T) {
	// A streaming reply grows an existing message, so nothing is appended;
	// scrolling away during it must still unpin.
	f := NewFollowController(200, 56)
	f.NoteAdvance()
	f.NoteDistance(500)
	if !f.Flush() {
		t.Fatalf("expected transition to unpinned")
	}
	if f.IsPinned() {
		t.Fatalf("expected unpinned while content streams in place")
	}
}

func TestFollowScrollAwayWithoutNewContentStaysPinned(t *testing.T) {
	f := NewFollowController(200, 56)
	f.NoteDistance(500)
	if f.Flush() {
		t.Fatalf("expected no transition while content is idle")
	}
	if !f.IsPinned() {
		t.Fatalf("expected pinned without streaming content")
	}
}

func TestFollowUnreadAccumulatesWhileUnpinned(t *testing.T) {
	f := NewFollowController(200, 56)
	f.NoteAppend(1)
	f.NoteDistance(300)
	f.Flush()

	f.NoteAppend(3)
	f.NoteAppend(2)
	if f.UnreadCount() != 5 {
		t.Fatalf("expected 5 unread, got %d", f.UnreadCount())
	}
}

func TestFollowJumpToBottomForcesPin(t *testing.T) {
	f := NewFollowController(200, 56)
	f.NoteAppend(1)
	f.NoteDistance(1000)
	f.Flush()
	f.NoteAppend(4)

	f.JumpToBottom()
	if !f.IsPinned() {
		t.Fatalf("expected pinned after jump to bottom")
	}
	if f.UnreadCount() != 0 {
		t.Fatalf("expected unread cleared, got %d", f.UnreadCount())
	}
}

func TestFollowGeometryCoalesced(t *testing.T) {
	f := NewFollowController(200, 56)
	f.NoteAppend(1)
	f.NoteDistance(500)
	f.NoteDistance(10) // latest value wins; earlier readings are dropped
	if f.Flush() {
		t.Fatalf("expected no transition: final distance is at the bottom")
	}
	if !f.IsPinned() {
		t.Fatalf("expected pinned")
	}
	if f.Flush() {
		t.Fatalf("second flush without new geometry must be a no-op")
	}
}
