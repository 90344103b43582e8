package client

import "triage/internal/types"

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type ConnectRepoRequest struct {
	RepoURL   string `json:"repoUrl"`
	GitHubPAT string `json:"githubPat"`
}

type ConnectRepoResponse struct {
	ID          string     `json:"id"`
	Repo        types.Repo `json:"repo"`
	IssuesCount int        `json:"issuesCount"`
	Message     string     `json:"message"`
}

type ResyncResponse struct {
	Message     string `json:"message"`
	IssuesCount int    `json:"issuesCount"`
}

type ScopeRequest struct {
	AdditionalContext string `json:"additionalContext"`
}

type ScopeResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// IssueSessionResponse carries the contract field sessionId plus the
// daemon's cached session record when one is live.
type IssueSessionResponse struct {
	SessionID *string              `json:"sessionId"`
	Session   *types.ActiveSession `json:"session,omitempty"`
}

type MessageRequest struct {
	Message string `json:"message"`
}

type ExecuteRequest struct {
	SessionID         string `json:"sessionId"`
	BranchName        string `json:"branchName"`
	TargetBranch      string `json:"targetBranch"`
	Approved          bool   `json:"approved"`
	AdditionalContext string `json:"additionalContext"`
}

type ExecuteResponse struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}
