package types

import "time"

// AppState is the small persisted UI preference set. The transcript mirror
// itself is never persisted; only what makes reopening the app pleasant.
type AppState struct {
	LastSessionID string `json:"last_session_id,omitempty"`
	ViewMode      string `json:"view_mode,omitempty"`
}

// RecentSession records when a session was last opened in the viewer.
type RecentSession struct {
	SessionID string    `json:"session_id"`
	OpenedAt  time.Time `json:"opened_at"`
}
