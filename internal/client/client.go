package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"triage/internal/config"
	"triage/internal/types"
)

const defaultBaseURL = "http://127.0.0.1:7977"

// Client is the typed HTTP client for the triage daemon. The bearer
// token is read lazily from disk so a client constructed before the
// daemon's first start still works once the token file exists.
type Client struct {
	baseURL   string
	tokenPath string
	token     string
	http      *http.Client
}

func New() (*Client, error) {
	tokenPath, err := config.TokenPath()
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   defaultBaseURL,
		tokenPath: tokenPath,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	_ = c.loadToken()
	return c, nil
}

func NewWithBaseURL(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/healthz", nil, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ConnectRepo(ctx context.Context, repoURL, pat string) (*ConnectRepoResponse, error) {
	var resp ConnectRepoResponse
	req := ConnectRepoRequest{RepoURL: repoURL, GitHubPAT: pat}
	if err := c.doJSON(ctx, http.MethodPost, "/api/repos/connect", req, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListRepos(ctx context.Context) ([]types.Repo, error) {
	var repos []types.Repo
	if err := c.doJSON(ctx, http.MethodGet, "/api/repos", nil, true, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

func (c *Client) DeleteRepo(ctx context.Context, repoID string) error {
	path := fmt.Sprintf("/api/repos/%s", repoID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, true, nil)
}

func (c *Client) ResyncRepo(ctx context.Context, repoID string) (*ResyncResponse, error) {
	var resp ResyncResponse
	path := fmt.Sprintf("/api/repos/%s/resync", repoID)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type IssueQuery struct {
	Q        string
	Label    string
	Page     int
	PageSize int
}

func (c *Client) ListIssues(ctx context.Context, repoID string, query IssueQuery) ([]types.Issue, error) {
	path := fmt.Sprintf("/api/repos/%s/issues", repoID)
	params := make([]string, 0, 4)
	if query.Q != "" {
		params = append(params, "q="+url.QueryEscape(query.Q))
	}
	if query.Label != "" {
		params = append(params, "label="+url.QueryEscape(query.Label))
	}
	if query.Page > 0 {
		params = append(params, fmt.Sprintf("page=%d", query.Page))
	}
	if query.PageSize > 0 {
		params = append(params, fmt.Sprintf("pageSize=%d", query.PageSize))
	}
	if len(params) > 0 {
		path += "?" + strings.Join(params, "&")
	}

	var issues []types.Issue
	if err := c.doJSON(ctx, http.MethodGet, path, nil, true, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

func (c *Client) ScopeIssue(ctx context.Context, issueID int64, additionalContext string) (*ScopeResponse, error) {
	var resp ScopeResponse
	path := fmt.Sprintf("/api/issues/%d/scope", issueID)
	req := ScopeRequest{AdditionalContext: additionalContext}
	if err := c.doJSON(ctx, http.MethodPost, path, req, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionForIssue returns nil without error when the issue has no live
// session.
func (c *Client) SessionForIssue(ctx context.Context, issueID int64) (*types.ActiveSession, error) {
	var resp IssueSessionResponse
	path := fmt.Sprintf("/api/issues/%d/session", issueID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, true, &resp); err != nil {
		return nil, err
	}
	if resp.SessionID == nil {
		return nil, nil
	}
	return resp.Session, nil
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (*types.SessionDetail, error) {
	var resp types.SessionDetail
	path := fmt.Sprintf("/api/devin/%s", sessionID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SendMessage(ctx context.Context, sessionID, message string) error {
	path := fmt.Sprintf("/api/devin/%s/message", sessionID)
	return c.doJSON(ctx, http.MethodPost, path, MessageRequest{Message: message}, true, nil)
}

// Execute starts implementation for the session scoped on an issue.
func (c *Client) Execute(ctx context.Context, issueID int64, req ExecuteRequest) (*ExecuteResponse, error) {
	var resp ExecuteResponse
	path := fmt.Sprintf("/api/issues/%d/execute", issueID)
	if err := c.doJSON(ctx, http.MethodPost, path, req, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CancelSession(ctx context.Context, sessionID string) error {
	path := fmt.Sprintf("/api/sessions/%s", sessionID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, true, nil)
}

func (c *Client) ListActiveSessions(ctx context.Context) ([]types.ActiveSession, error) {
	var sessions []types.ActiveSession
	if err := c.doJSON(ctx, http.MethodGet, "/api/sessions/active", nil, true, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *Client) Shutdown(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/shutdown", nil, true, nil)
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return fmt.Sprintf("daemon error (%d)", e.StatusCode)
	}
	return e.Message
}

func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
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
		return errors.New("token not found; is the daemon running?")
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
	return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
}
