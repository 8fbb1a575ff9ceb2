package view

import "mirror/internal/types"

// Mirror is the locally rendered copy of one session's transcript. It is
// created empty when a session view opens, populated by the first
// reconciliation pass, mutated in place by every later pass, and discarded
// on session switch. The refresh scheduler's loop is its only writer.
type Mirror struct {
	messages   []*types.Message
	revision   uint64
	forkedFrom string
}

func NewMirror() *Mirror {
	return &Mirror{}
}

func (m *Mirror) Len() int {
	if m == nil {
		return 0
	}
	return len(m.messages)
}

// Messages returns a copy of the full mirrored sequence in chronological
// order. Reconciliation patches entries of the backing array in place, so
// the caller gets its own slice to iterate.
func (m *Mirror) Messages() []*types.Message {
	if m == nil || len(m.messages) == 0 {
		return nil
	}
	out := make([]*types.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

func (m *Mirror) Revision() uint64 {
	if m == nil {
		return 0
	}
	return m.revision
}

func (m *Mirror) ForkedFrom() string {
	if m == nil {
		return ""
	}
	return m.forkedFrom
}

// Tail returns the trailing count messages, the slice the window exposes.
func (m *Mirror) Tail(count int) []*types.Message {
	if m == nil || count <= 0 {
		return nil
	}
	if count >= len(m.messages) {
		return m.messages
	}
	return m.messages[len(m.messages)-count:]
}
