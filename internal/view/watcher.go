package view

// RevisionWatcher tracks the last revision observed for a session and
// reports changes. The authority's counter is non-decreasing in practice,
// but a rollback may reset it, so any difference counts as a change.
type RevisionWatcher struct {
	last uint64
	seen bool
}

func NewRevisionWatcher() *RevisionWatcher {
	return &RevisionWatcher{}
}

// Observe records a revision reading and reports whether it differed from
// the previous one. The first observation always reports a change so the
// initial load is scheduled.
func (w *RevisionWatcher) Observe(revision uint64) bool {
	if w == nil {
		return false
	}
	if w.seen && w.last == revision {
		return false
	}
	w.last = revision
	w.seen = true
	return true
}

// Last returns the most recently observed revision.
func (w *RevisionWatcher) Last() (uint64, bool) {
	if w == nil {
		return 0, false
	}
	return w.last, w.seen
}
