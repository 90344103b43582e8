package devin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"triage/internal/types"
)

// Client calls the hosted Devin API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type createSessionPayload struct {
	Prompt string `json:"prompt"`
	Title  string `json:"title,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*CreatedSession, error) {
	prompt := req.Prompt
	if req.RepoFullName != "" {
		prompt = "Repository: " + req.RepoFullName + "\n\n" + prompt
	}
	var resp createSessionResponse
	err := c.doJSON(ctx, http.MethodPost, "/sessions", createSessionPayload{
		Prompt: prompt,
		Title:  req.Title,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &CreatedSession{SessionID: resp.SessionID, URL: resp.URL}, nil
}

type sessionResponse struct {
	Status           string             `json:"status"`
	StatusEnum       string             `json:"status_enum"`
	StructuredOutput map[string]any     `json:"structured_output"`
	PullRequest      *types.PullRequest `json:"pull_request"`
	URL              string             `json:"url"`
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (*types.SessionDetail, error) {
	var resp sessionResponse
	if err := c.doJSON(ctx, http.MethodGet, "/session/"+sessionID, nil, &resp); err != nil {
		return nil, err
	}
	status := resp.StatusEnum
	if status == "" {
		status = resp.Status
	}
	return &types.SessionDetail{
		Status:           mapUpstreamStatus(status),
		StructuredOutput: resp.StructuredOutput,
		PullRequest:      resp.PullRequest,
		URL:              resp.URL,
	}, nil
}

func (c *Client) SendMessage(ctx context.Context, sessionID, message string) error {
	return c.doJSON(ctx, http.MethodPost, "/session/"+sessionID+"/message", map[string]string{
		"message": message,
	}, nil)
}

func (c *Client) Execute(ctx context.Context, sessionID string, req ExecuteRequest) error {
	message := fmt.Sprintf(
		"The plan is approved. Proceed with the implementation on branch %q targeting %q and open a pull request when done.",
		req.BranchName, req.TargetBranch)
	if strings.TrimSpace(req.AdditionalContext) != "" {
		message += "\n\nAdditional context:\n" + req.AdditionalContext
	}
	return c.SendMessage(ctx, sessionID, message)
}

func (c *Client) Cancel(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, http.MethodPost, "/session/"+sessionID+"/terminate", nil, nil)
}

// mapUpstreamStatus folds the upstream lifecycle vocabulary into the
// local enum. Unknown values degrade to running rather than failing.
func mapUpstreamStatus(raw string) types.SessionStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "initializing", "created", "starting":
		return types.SessionStatusInitializing
	case "blocked", "awaiting_user_input":
		return types.SessionStatusBlocked
	case "finished", "completed":
		return types.SessionStatusFinished
	case "failed", "error":
		return types.SessionStatusFailed
	case "cancelled", "terminated", "expired":
		return types.SessionStatusCancelled
	default:
		return types.SessionStatusRunning
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
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
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrSessionNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Detail string `json:"detail"`
			Error  string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		message := payload.Detail
		if message == "" {
			message = payload.Error
		}
		if message == "" {
			message = resp.Status
		}
		return fmt.Errorf("devin api (%d): %s", resp.StatusCode, message)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
