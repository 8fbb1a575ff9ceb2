package view

import "mirror/internal/types"

// TurnDiff is a server-computed diff summary attached to a turn by id.
type TurnDiff struct {
	TurnID string
	Stat   string
}

// BuildTurns groups the windowed message slice into logical turns for the
// condensed view mode. Each user message anchors a new turn; every non-user
// message joins the open turn; a leading non-user run forms an anchorless
// turn. Identity is synthetic and derived from the anchor id so a turn
// survives re-grouping after an append.
func BuildTurns(messages []*types.Message, diffs []TurnDiff, inProgress bool) []*types.Turn {
	if len(messages) == 0 {
		return nil
	}
	var turns []*types.Turn
	var open *types.Turn
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		if msg.Kind == types.MessageKindUser {
			open = &types.Turn{
				ID:       types.TurnID(msg.ID),
				Anchor:   msg,
				Messages: []*types.Message{msg},
			}
			turns = append(turns, open)
			continue
		}
		if open == nil {
			open = &types.Turn{
				ID:       types.TurnID(""),
				Messages: nil,
			}
			turns = append(turns, open)
		}
		open.Messages = append(open.Messages, msg)
	}
	if len(turns) == 0 {
		return nil
	}
	if inProgress {
		last := turns[len(turns)-1]
		last.Current = true
		last.ID = types.CurrentTurnID
	}
	if len(diffs) > 0 {
		byID := make(map[string]string, len(diffs))
		for _, diff := range diffs {
			byID[diff.TurnID] = diff.Stat
		}
		for _, turn := range turns {
			if stat, ok := byID[turn.ID]; ok {
				turn.DiffStat = stat
			}
		}
	}
	return turns
}
