package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"mirror/internal/config"
	"mirror/internal/types"
)

// Client talks to the mirrord authority over localhost HTTP. It implements
// the transport contract the sync engine consumes: a pollable revision, an
// idempotent snapshot fetch, and the mutating session operations.
type Client struct {
	baseURL   string
	tokenPath string
	token     string
	http      *http.Client
}

func New(address string) (*Client, error) {
	tokenPath, err := config.TokenPath()
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   "http://" + strings.TrimRight(address, "/"),
		tokenPath: tokenPath,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
	_ = c.loadToken()
	return c, nil
}

func NewWithBaseURL(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListSessions(ctx context.Context) ([]*types.SessionInfo, error) {
	var resp SessionsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/sessions", nil, true, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

func (c *Client) CreateSession(ctx context.Context, title string) (*types.SessionInfo, error) {
	var info types.SessionInfo
	req := CreateSessionRequest{Title: title}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/sessions", req, true, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetRevision reads the session's current revision counter.
func (c *Client) GetRevision(ctx context.Context, sessionID string) (uint64, error) {
	var resp RevisionResponse
	path := fmt.Sprintf("/v1/sessions/%s/revision", sessionID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, true, &resp); err != nil {
		return 0, err
	}
	return resp.Revision, nil
}

// GetSnapshot fetches the full ordered transcript at the current revision.
func (c *Client) GetSnapshot(ctx context.Context, sessionID string) (*types.Snapshot, error) {
	var snap types.Snapshot
	path := fmt.Sprintf("/v1/sessions/%s/snapshot", sessionID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, true, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) SendMessage(ctx context.Context, sessionID, text string) error {
	path := fmt.Sprintf("/v1/sessions/%s/messages", sessionID)
	return c.doJSON(ctx, http.MethodPost, path, SendMessageRequest{Text: text}, true, nil)
}

func (c *Client) Rollback(ctx context.Context, sessionID string, turns int) error {
	path := fmt.Sprintf("/v1/sessions/%s/rollback", sessionID)
	return c.doJSON(ctx, http.MethodPost, path, RollbackRequest{Turns: turns}, true, nil)
}

func (c *Client) Fork(ctx context.Context, sessionID string, nthUserMessage int, title string) (*types.SessionInfo, error) {
	var info types.SessionInfo
	path := fmt.Sprintf("/v1/sessions/%s/fork", sessionID)
	req := ForkRequest{NthUserMessage: nthUserMessage, Title: title}
	if err := c.doJSON(ctx, http.MethodPost, path, req, true, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Undo(ctx context.Context, sessionID string) error {
	path := fmt.Sprintf("/v1/sessions/%s/undo", sessionID)
	return c.doJSON(ctx, http.MethodPost, path, nil, true, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, requireAuth bool, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requireAuth {
		if err := c.ensureToken(); err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) ensureToken() error {
	if strings.TrimSpace(c.token) == "" {
		if err := c.loadToken(); err != nil {
			return err
		}
	}
	if strings.TrimSpace(c.token) == "" {
		return errors.New("token not found; is mirrord running?")
	}
	return nil
}

func (c *Client) loadToken() error {
	if c.tokenPath == "" {
		return nil
	}
	data, err := os.ReadFile(c.tokenPath)
	if err != nil {
		if os.IsNotExist(err) {
			c.token = ""
			return nil
		}
		return err
	}
	c.token = strings.TrimSpace(string(data))
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if payload.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
