package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"mirror/internal/logging"
)

type API struct {
	Version  string
	Manager  *SessionManager
	Logger   logging.Logger
	Shutdown func(context.Context) error
}

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
	PID     int    `json:"pid"`
}

type CreateSessionRequest struct {
	Title string `json:"title,omitempty"`
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

type OKResponse struct {
	OK bool `json:"ok"`
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", a.Health)
	mux.HandleFunc("/v1/sessions", a.Sessions)
	mux.HandleFunc("/v1/sessions/", a.SessionByID)
	mux.HandleFunc("/v1/shutdown", a.ShutdownDaemon)
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{OK: true, Version: a.Version, PID: os.Getpid()})
}

func (a *API) Sessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"sessions": a.Manager.List()})
	case http.MethodPost:
		var req CreateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
			writeServiceError(w, errInvalid("invalid request body"))
			return
		}
		writeJSON(w, http.StatusCreated, a.Manager.Create(req.Title))
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (a *API) SessionByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeServiceError(w, errInvalid("session id is required"))
		return
	}
	switch {
	case action == "revision" && r.Method == http.MethodGet:
		a.revision(w, r, id)
	case action == "snapshot" && r.Method == http.MethodGet:
		a.snapshot(w, r, id)
	case action == "watch" && r.Method == http.MethodGet:
		a.watch(w, r, id)
	case action == "messages" && r.Method == http.MethodPost:
		a.sendMessage(w, r, id)
	case action == "rollback" && r.Method == http.MethodPost:
		a.rollback(w, r, id)
	case action == "fork" && r.Method == http.MethodPost:
		a.fork(w, r, id)
	case action == "undo" && r.Method == http.MethodPost:
		a.undo(w, r, id)
	default:
		writeServiceError(w, errNotFound("unknown session endpoint"))
	}
}

func (a *API) revision(w http.ResponseWriter, _ *http.Request, id string) {
	revision, err := a.Manager.Revision(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"revision": revision})
}

func (a *API) snapshot(w http.ResponseWriter, _ *http.Request, id string) {
	snap, err := a.Manager.Snapshot(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) watch(w http.ResponseWriter, r *http.Request, id string) {
	events, cancel, err := a.Manager.Watch(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer cancel()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(data)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}

func (a *API) sendMessage(w http.ResponseWriter, r *http.Request, id string) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeServiceError(w, errInvalid("invalid request body"))
		return
	}
	if err := a.Manager.AppendUser(id, req.Text); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

func (a *API) rollback(w http.ResponseWriter, r *http.Request, id string) {
	var req RollbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeServiceError(w, errInvalid("invalid request body"))
		return
	}
	if err := a.Manager.Rollback(id, req.Turns); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

func (a *API) fork(w http.ResponseWriter, r *http.Request, id string) {
	var req ForkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeServiceError(w, errInvalid("invalid request body"))
		return
	}
	info, err := a.Manager.Fork(id, req.NthUserMessage, req.Title)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (a *API) undo(w http.ResponseWriter, _ *http.Request, id string) {
	if err := a.Manager.Undo(id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

func (a *API) ShutdownDaemon(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
	if a.Shutdown != nil {
		go func() {
			_ = a.Shutdown(context.Background())
		}()
	}
}
