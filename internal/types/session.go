package types

import "time"

type SessionStatus string

const (
	SessionStatusInitializing SessionStatus = "initializing"
	SessionStatusRunning      SessionStatus = "running"
	SessionStatusBlocked      SessionStatus = "blocked"
	SessionStatusFinished     SessionStatus = "finished"
	SessionStatusFailed       SessionStatus = "failed"
	SessionStatusCancelled    SessionStatus = "cancelled"
)

// Terminal reports whether no further polling is useful for this status.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionStatusFinished, SessionStatusFailed, SessionStatusCancelled:
		return true
	default:
		return false
	}
}

// ActiveSession is one entry of the active-session listing. It carries
// enough denormalized context (issue title, repo name) for a list row
// without a second lookup.
type ActiveSession struct {
	SessionID    string        `json:"session_id"`
	IssueID      int64         `json:"issue_id"`
	RepoID       string        `json:"repo_id"`
	IssueTitle   string        `json:"issue_title"`
	RepoName     string        `json:"repo_name"`
	Status       SessionStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	LastAccessed time.Time     `json:"last_accessed"`
}

type PullRequest struct {
	URL string `json:"url"`
}

// SessionDetail mirrors the agent service's per-session response. The
// structured output is kept loosely typed here; the session package owns
// normalizing it into a usable shape.
type SessionDetail struct {
	Status           SessionStatus  `json:"status"`
	StructuredOutput map[string]any `json:"structured_output,omitempty"`
	PullRequest      *PullRequest   `json:"pull_request,omitempty"`
	URL              string         `json:"url"`
}
