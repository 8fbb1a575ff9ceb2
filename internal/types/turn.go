package types

// CurrentTurnID is the synthetic id of the turn still being produced, so
// grouped views can key the in-progress turn stably across refreshes.
const CurrentTurnID = "turn:current"

// Turn is a derived grouping of a contiguous message run: one user message
// (the anchor) through the next user message, exclusive. A leading run of
// non-user messages forms a turn with no anchor. Turns never own their
// messages; they slice the mirror.
type Turn struct {
	ID       string     `json:"id"`
	Anchor   *Message   `json:"anchor,omitempty"`
	Messages []*Message `json:"messages"`
	Current  bool       `json:"current,omitempty"`
	DiffStat string     `json:"diff_stat,omitempty"`
}

// TurnID derives the stable synthetic id for a turn anchored by the given
// message id. The empty anchor maps to the anchorless leading turn.
func TurnID(anchorID string) string {
	if anchorID == "" {
		return "turn:lead"
	}
	return "turn:" + anchorID
}

// MessageMetadata is recomputed on every reconciliation pass and never
// persisted. TurnsAfter sizes the "roll back N turns" affordance;
// NthUserMessage addresses "fork from here".
type MessageMetadata struct {
	TurnsAfter     int `json:"turns_after"`
	NthUserMessage int `json:"nth_user_message"`
}
