package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.github.com"
	acceptHeader   = "application/vnd.github.v3+json"
	userAgent      = "triage/1.0"
)

// Client is a minimal GitHub REST v3 client covering what the daemon
// needs: repository metadata with permission checks, and open-issue
// listings. The PAT is supplied per call, not held by the client.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// APIError carries the upstream status code so callers can translate it
// into a user-facing message. PATs never appear in the message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return fmt.Sprintf("github api error (%d)", e.StatusCode)
	}
	return fmt.Sprintf("github api error (%d): %s", e.StatusCode, e.Message)
}

func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

type Permissions struct {
	Admin bool `json:"admin"`
	Push  bool `json:"push"`
	Pull  bool `json:"pull"`
}

type RepoInfo struct {
	FullName    string       `json:"full_name"`
	HTMLURL     string       `json:"html_url"`
	Permissions *Permissions `json:"permissions"`
}

type Label struct {
	Name string `json:"name"`
}

type User struct {
	Login string `json:"login"`
}

// Issue is the raw GitHub issue record. PullRequest is non-nil when the
// record is actually a pull request; callers skip those.
type Issue struct {
	ID          int64     `json:"id"`
	Number      int       `json:"number"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Labels      []Label   `json:"labels"`
	User        User      `json:"user"`
	CreatedAt   time.Time `json:"created_at"`
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

func (c *Client) GetRepo(ctx context.Context, pat, owner, name string) (*RepoInfo, error) {
	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(name))
	var info RepoInfo
	if err := c.doJSON(ctx, pat, path, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) ListOpenIssues(ctx context.Context, pat, owner, name string) ([]Issue, error) {
	path := fmt.Sprintf("/repos/%s/%s/issues?state=open&per_page=100",
		url.PathEscape(owner), url.PathEscape(name))
	var issues []Issue
	if err := c.doJSON(ctx, pat, path, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

func (c *Client) doJSON(ctx context.Context, pat, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "token "+pat)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgent)

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

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return &APIError{StatusCode: resp.StatusCode, Message: payload.Message}
}
