package daemon

import (
	"context"

	"triage/internal/logging"
)

// API binds the HTTP surface to the services. Shutdown is injected by
// the daemon so the shutdown endpoint can stop the server it runs on.
type API struct {
	Version  string
	Repos    *RepoService
	Sessions *SessionService
	Logger   logging.Logger
	Shutdown func(ctx context.Context) error
}

type ConnectRepoRequest struct {
	RepoURL   string `json:"repoUrl"`
	GitHubPAT string `json:"githubPat"`
}

type ScopeRequest struct {
	AdditionalContext string `json:"additionalContext"`
}

type MessageRequest struct {
	Message string `json:"message"`
}

type ExecuteSessionRequest struct {
	SessionID         string `json:"sessionId"`
	BranchName        string `json:"branchName"`
	TargetBranch      string `json:"targetBranch"`
	Approved          bool   `json:"approved"`
	AdditionalContext string `json:"additionalContext"`
}
