package view

import "mirror/internal/types"

// ComputeMetadata derives per-message relationships from the full mirrored
// sequence without nested scans. Ordinals count user messages across the
// whole transcript, not just the visible window: the authority interprets
// a fork cut point the same way, so a window that hides earlier user
// messages must not shift them. The first pass assigns each user message
// its ordinal among user messages and records user indices; the second
// pass walks only
// those indices to count the user messages strictly after each one. A user
// message with no later user message but a response in flight still counts
// one rollbackable turn; one with nothing after it counts zero, which hides
// the affordance. Non-user messages carry no metadata.
func ComputeMetadata(messages []*types.Message) map[string]types.MessageMetadata {
	if len(messages) == 0 {
		return nil
	}
	meta := make(map[string]types.MessageMetadata)
	var userIndices []int
	for i, msg := range messages {
		if msg == nil || msg.Kind != types.MessageKindUser {
			continue
		}
		meta[msg.ID] = types.MessageMetadata{NthUserMessage: len(userIndices)}
		userIndices = append(userIndices, i)
	}
	for ordinal, index := range userIndices {
		msg := messages[index]
		entry := meta[msg.ID]
		entry.TurnsAfter = len(userIndices) - ordinal - 1
		if entry.TurnsAfter == 0 && index < len(messages)-1 {
			entry.TurnsAfter = 1
		}
		meta[msg.ID] = entry
	}
	return meta
}
