package types

import "time"

// Snapshot is the authority's view of one session transcript at a single
// revision. Messages are in chronological order and are never reordered;
// the revision bumps on any mutation. ForkedFrom is informational only.
type Snapshot struct {
	SessionID  string     `json:"session_id"`
	Revision   uint64     `json:"revision"`
	Messages   []*Message `json:"messages"`
	ForkedFrom string     `json:"forked_from,omitempty"`
}

type SessionInfo struct {
	ID         string    `json:"id"`
	Title      string    `json:"title,omitempty"`
	Revision   uint64    `json:"revision"`
	Messages   int       `json:"messages"`
	ForkedFrom string    `json:"forked_from,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RevisionEvent is one entry on the authority's revision watch stream.
type RevisionEvent struct {
	SessionID string `json:"session_id"`
	Revision  uint64 `json:"revision"`
}
