package client

import "mirror/internal/types"

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
	PID     int    `json:"pid"`
}

type SessionsResponse struct {
	Sessions []*types.SessionInfo `json:"sessions"`
}

type CreateSessionRequest struct {
	Title string `json:"title,omitempty"`
}

type RevisionResponse struct {
	Revision uint64 `json:"revision"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

type RollbackRequest struct {
	Turns int `json:"turns"`
}

type ForkRequest struct {
	NthUserMessage int    `json:"nth_user_message"`
	Title          string `json:"title,omitempty"`
}
