package app

import (
	"context"

	"triage/internal/client"
	"triage/internal/types"
)

// DaemonAPI is the daemon surface the UI consumes. *client.Client
// satisfies it; tests substitute fakes.
type DaemonAPI interface {
	ListRepos(ctx context.Context) ([]types.Repo, error)
	ConnectRepo(ctx context.Context, repoURL, pat string) (*client.ConnectRepoResponse, error)
	DeleteRepo(ctx context.Context, repoID string) error
	ResyncRepo(ctx context.Context, repoID string) (*client.ResyncResponse, error)
	ListIssues(ctx context.Context, repoID string, query client.IssueQuery) ([]types.Issue, error)
	ScopeIssue(ctx context.Context, issueID int64, additionalContext string) (*client.ScopeResponse, error)
	SessionForIssue(ctx context.Context, issueID int64) (*types.ActiveSession, error)
	SendMessage(ctx context.Context, sessionID, message string) error
	Execute(ctx context.Context, issueID int64, req client.ExecuteRequest) (*client.ExecuteResponse, error)
	CancelSession(ctx context.Context, sessionID string) error
}
