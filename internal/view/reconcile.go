package view

import (
	"mirror/internal/logging"
	"mirror/internal/types"
)

type ReconcilePath int

const (
	// ReconcileNoop means the snapshot was render-equivalent to the mirror.
	ReconcileNoop ReconcilePath = iota
	// ReconcileAppend means the mirror's id-prefix survived: differing
	// prefix entries were patched in place and the snapshot tail appended.
	ReconcileAppend
	// ReconcileReplace means the prefix assumption failed (rollback, undo,
	// fork, or initial load) and the mirror was replaced wholesale.
	ReconcileReplace
)

func (p ReconcilePath) String() string {
	switch p {
	case ReconcileNoop:
		return "noop"
	case ReconcileAppend:
		return "append"
	default:
		return "replace"
	}
}

type ReconcileResult struct {
	Path     ReconcilePath
	Appended int
	Patched  int
}

// Reconciler folds authority snapshots into a mirror at whole-message
// granularity. Path eligibility is checked in fixed order; the first
// eligible path wins.
type Reconciler struct {
	logger logging.Logger
}

func NewReconciler(logger logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Reconciler{logger: logger}
}

// Apply reconciles snapshot into mirror and reports which path ran.
func (r *Reconciler) Apply(mirror *Mirror, snapshot *types.Snapshot) ReconcileResult {
	if mirror == nil || snapshot == nil {
		return ReconcileResult{Path: ReconcileNoop}
	}
	incoming := r.dedupe(snapshot)
	defer func() {
		mirror.revision = snapshot.Revision
		mirror.forkedFrom = snapshot.ForkedFrom
	}()

	if renderEquivalent(mirror.messages, incoming) {
		return ReconcileResult{Path: ReconcileNoop}
	}

	if len(mirror.messages) > 0 && len(incoming) >= len(mirror.messages) && sharesIDPrefix(mirror.messages, incoming) {
		result := ReconcileResult{Path: ReconcileAppend}
		for i, existing := range mirror.messages {
			if !existing.RenderEquivalent(incoming[i]) {
				mirror.messages[i] = incoming[i].Clone()
				result.Patched++
			}
		}
		for _, msg := range incoming[len(mirror.messages):] {
			mirror.messages = append(mirror.messages, msg.Clone())
			result.Appended++
		}
		return result
	}

	replacement := make([]*types.Message, len(incoming))
	for i, msg := range incoming {
		replacement[i] = msg.Clone()
	}
	mirror.messages = replacement
	return ReconcileResult{Path: ReconcileReplace, Appended: len(replacement)}
}

// dedupe tolerates duplicate ids within one snapshot: an id keeps its first
// position but the last occurrence's content wins. The authority is an
// independently evolving process, so this is recovered rather than fatal.
func (r *Reconciler) dedupe(snapshot *types.Snapshot) []*types.Message {
	messages := snapshot.Messages
	clean := true
	seen := make(map[string]bool, len(messages))
	for _, msg := range messages {
		if msg == nil || seen[msg.ID] {
			clean = false
			break
		}
		seen[msg.ID] = true
	}
	if clean {
		return messages
	}

	last := make(map[string]*types.Message, len(messages))
	order := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		if _, ok := last[msg.ID]; !ok {
			order = append(order, msg.ID)
		}
		last[msg.ID] = msg
	}
	out := make([]*types.Message, len(order))
	for i, id := range order {
		out[i] = last[id]
	}
	r.logger.Warn("snapshot_duplicate_ids",
		logging.F("session_id", snapshot.SessionID),
		logging.F("revision", snapshot.Revision),
	)
	return out
}

func renderEquivalent(mirror, snapshot []*types.Message) bool {
	if len(mirror) != len(snapshot) {
		return false
	}
	for i := range mirror {
		if !mirror[i].RenderEquivalent(snapshot[i]) {
			return false
		}
	}
	return true
}

func sharesIDPrefix(mirror, snapshot []*types.Message) bool {
	for i := range mirror {
		if mirror[i] == nil || snapshot[i] == nil || mirror[i].ID != snapshot[i].ID {
			return false
		}
	}
	return true
}
