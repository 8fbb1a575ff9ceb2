package view

import "mirror/internal/logging"

// WindowManager owns displayedCount: how many trailing mirror messages the
// presentation layer sees. The count only grows while a session stays open;
// a session switch constructs a fresh manager, so the first replace pass
// settles it at one page.
type WindowManager struct {
	pageSize  int
	displayed int
	logger    logging.Logger
}

const defaultWindowPageSize = 50

func NewWindowManager(pageSize int, logger logging.Logger) *WindowManager {
	if pageSize <= 0 {
		pageSize = defaultWindowPageSize
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &WindowManager{pageSize: pageSize, logger: logger}
}

func (w *WindowManager) Displayed() int {
	if w == nil {
		return 0
	}
	return w.displayed
}

func (w *WindowManager) HasMore(total int) bool {
	if w == nil {
		return false
	}
	return w.displayed < total
}

// ApplyAppend grows the window by exactly the number of newly appended
// messages. A user who has paged through older history keeps that history.
func (w *WindowManager) ApplyAppend(appended, total int) {
	if w == nil || appended <= 0 {
		w.recover(total)
		return
	}
	w.displayed = min(w.displayed+appended, total)
	w.recover(total)
}

// ApplyReplace recomputes the window after a full mirror replacement:
// whatever was displayed before, but at least a page, clamped to the new
// total.
func (w *WindowManager) ApplyReplace(total int) {
	if w == nil {
		return
	}
	w.displayed = min(max(w.displayed, w.pageSize), total)
	w.recover(total)
}

// LoadMore exposes one more page of older history.
func (w *WindowManager) LoadMore(total int) {
	if w == nil {
		return
	}
	w.displayed = min(w.displayed+w.pageSize, total)
	w.recover(total)
}

// recover handles a pagination desync: an empty window over a non-empty
// mirror would render a blank pane, so expose everything instead.
func (w *WindowManager) recover(total int) {
	if w == nil {
		return
	}
	if w.displayed <= 0 && total > 0 {
		w.logger.Warn("window_desync_recovered", logging.F("total", total))
		w.displayed = total
	}
	if w.displayed > total {
		w.displayed = total
	}
}
