package daemon

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"triage/internal/github"
	"triage/internal/logging"
	"triage/internal/types"
)

// GitHubAPI is the slice of the GitHub client the repo service uses.
type GitHubAPI interface {
	GetRepo(ctx context.Context, pat, owner, name string) (*github.RepoInfo, error)
	ListOpenIssues(ctx context.Context, pat, owner, name string) ([]github.Issue, error)
}

type RepoService struct {
	gh       GitHubAPI
	repos    *RepoStore
	issues   *IssueStore
	sessions *SessionRegistry
	logger   logging.Logger
	now      func() time.Time
	newID    func() string
}

func NewRepoService(gh GitHubAPI, repos *RepoStore, issues *IssueStore, sessions *SessionRegistry, logger logging.Logger) *RepoService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &RepoService{
		gh:       gh,
		repos:    repos,
		issues:   issues,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

type ConnectResult struct {
	Repo        types.Repo
	IssuesCount int
}

// Connect validates the URL and PAT against GitHub, requires push
// access, and caches the repo's open issues. The PAT is stored
// server-side only.
func (s *RepoService) Connect(ctx context.Context, repoURL, pat string) (*ConnectResult, error) {
	repoURL = strings.TrimSpace(repoURL)
	pat = strings.TrimSpace(pat)
	if repoURL == "" {
		return nil, invalidError("Repository URL is required", nil)
	}
	if pat == "" {
		return nil, invalidError("GitHub Personal Access Token is required", nil)
	}

	owner, name, err := parseRepoURL(repoURL)
	if err != nil {
		return nil, invalidError("Invalid GitHub repository URL. Expected format: https://github.com/owner/repo", err)
	}

	info, err := s.gh.GetRepo(ctx, pat, owner, name)
	if err != nil {
		return nil, connectError(err, owner, name)
	}
	if info.Permissions == nil {
		return nil, invalidError("The provided PAT lacks the 'repo' scope required to access repository permissions", nil)
	}
	if !info.Permissions.Push {
		return nil, invalidError(fmt.Sprintf("Push access to %s/%s is required to delegate work", owner, name), nil)
	}

	rawIssues, err := s.gh.ListOpenIssues(ctx, pat, owner, name)
	if err != nil {
		return nil, connectError(err, owner, name)
	}
	issues := convertIssues(rawIssues, s.now())

	repo := types.Repo{
		ID:              s.newID(),
		Owner:           owner,
		Name:            name,
		URL:             info.HTMLURL,
		ConnectedAt:     s.now(),
		OpenIssuesCount: len(issues),
	}
	if repo.URL == "" {
		repo.URL = fmt.Sprintf("https://github.com/%s/%s", owner, name)
	}

	s.repos.Add(repo, pat)
	s.issues.Replace(repo.ID, issues)
	s.logger.Info("repo_connected",
		logging.F("repo_id", repo.ID),
		logging.F("repo", repo.FullName()),
		logging.F("issues", len(issues)),
	)
	return &ConnectResult{Repo: repo, IssuesCount: len(issues)}, nil
}

type ResyncResult struct {
	IssuesCount int
}

// Resync re-fetches a connected repo's open issues with its stored PAT.
func (s *RepoService) Resync(ctx context.Context, repoID string) (*ResyncResult, error) {
	repo, pat, ok := s.repos.Get(repoID)
	if !ok {
		return nil, notFoundError("Repository not found", nil)
	}

	rawIssues, err := s.gh.ListOpenIssues(ctx, pat, repo.Owner, repo.Name)
	if err != nil {
		return nil, resyncError(err, repo.Owner, repo.Name)
	}
	issues := convertIssues(rawIssues, s.now())

	s.issues.Replace(repoID, issues)
	s.repos.SetOpenIssuesCount(repoID, len(issues))
	s.logger.Info("repo_resynced",
		logging.F("repo_id", repoID),
		logging.F("repo", repo.FullName()),
		logging.F("issues", len(issues)),
	)
	return &ResyncResult{IssuesCount: len(issues)}, nil
}

func (s *RepoService) List(ctx context.Context) []types.Repo {
	return s.repos.List()
}

// Delete disconnects a repo and drops its cached issues and any
// sessions that were started from it.
func (s *RepoService) Delete(ctx context.Context, repoID string) error {
	if !s.repos.Delete(repoID) {
		return notFoundError("Repository not found", nil)
	}
	s.issues.Delete(repoID)
	s.sessions.RemoveByRepo(repoID)
	s.logger.Info("repo_deleted", logging.F("repo_id", repoID))
	return nil
}

func (s *RepoService) Issues(ctx context.Context, repoID string, query IssueQuery) ([]types.Issue, error) {
	issues, ok := s.issues.Query(repoID, query)
	if !ok {
		return nil, notFoundError("Repository not found", nil)
	}
	return issues, nil
}

// parseRepoURL accepts https://github.com/owner/repo (trailing slash
// and .git suffix tolerated) and bare owner/repo shorthand.
func parseRepoURL(raw string) (owner, name string, err error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(raw), "/")
	trimmed = strings.TrimPrefix(trimmed, "https://")
	trimmed = strings.TrimPrefix(trimmed, "http://")
	trimmed = strings.TrimPrefix(trimmed, "www.")
	trimmed = strings.TrimPrefix(trimmed, "github.com/")
	trimmed = strings.TrimSuffix(trimmed, ".git")

	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("cannot parse owner/repo from %q", raw)
	}
	return parts[0], parts[1], nil
}

func convertIssues(raw []github.Issue, now time.Time) []types.Issue {
	issues := make([]types.Issue, 0, len(raw))
	for _, issue := range raw {
		if issue.PullRequest != nil {
			continue
		}
		labels := make([]string, 0, len(issue.Labels))
		for _, label := range issue.Labels {
			labels = append(labels, label.Name)
		}
		age := int(now.Sub(issue.CreatedAt).Hours() / 24)
		if age < 0 {
			age = 0
		}
		issues = append(issues, types.Issue{
			ID:        issue.ID,
			Title:     issue.Title,
			Body:      issue.Body,
			Labels:    labels,
			Number:    issue.Number,
			Author:    issue.User.Login,
			CreatedAt: issue.CreatedAt,
			AgeDays:   age,
			Status:    types.IssueStatusOpen,
		})
	}
	return issues
}

// connectError translates GitHub failures into user-facing messages.
// The PAT itself never appears in any of them.
func connectError(err error, owner, name string) error {
	apiErr := github.AsAPIError(err)
	if apiErr == nil {
		return unavailableError("Could not reach GitHub. Check your network connection and try again", redactError(err))
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		return invalidError("Invalid GitHub Personal Access Token", nil)
	case http.StatusForbidden:
		if strings.Contains(strings.ToLower(apiErr.Message), "rate limit") {
			return unavailableError("GitHub API rate limit exceeded. Try again later", nil)
		}
		return invalidError(fmt.Sprintf("The provided PAT has insufficient permissions for %s/%s", owner, name), nil)
	case http.StatusNotFound:
		return notFoundError(fmt.Sprintf("Repository %s/%s not found, or the PAT has no access to it", owner, name), nil)
	default:
		return unavailableError(fmt.Sprintf("GitHub returned an unexpected error (%d)", apiErr.StatusCode), nil)
	}
}

func resyncError(err error, owner, name string) error {
	apiErr := github.AsAPIError(err)
	if apiErr == nil {
		return unavailableError("Could not reach GitHub. Check your network connection and try again", redactError(err))
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		return invalidError("The stored GitHub token has expired or been revoked. Reconnect the repository with a fresh PAT", nil)
	case http.StatusForbidden:
		if strings.Contains(strings.ToLower(apiErr.Message), "rate limit") {
			return unavailableError("GitHub API rate limit exceeded. Try again later", nil)
		}
		return invalidError(fmt.Sprintf("The stored token has insufficient permissions for %s/%s", owner, name), nil)
	case http.StatusNotFound:
		return notFoundError(fmt.Sprintf("Repository %s/%s not found, or the token has no access to it", owner, name), nil)
	default:
		return unavailableError(fmt.Sprintf("GitHub returned an unexpected error (%d)", apiErr.StatusCode), nil)
	}
}

// redactError strips anything that looks like a token from transport
// errors before they reach logs or clients.
func redactError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, prefix := range []string{"ghp_", "github_pat_", "gho_"} {
		for {
			idx := strings.Index(msg, prefix)
			if idx < 0 {
				break
			}
			end := idx
			for end < len(msg) && !isTokenBoundary(msg[end]) {
				end++
			}
			msg = msg[:idx] + "[REDACTED]" + msg[end:]
		}
	}
	return fmt.Errorf("%s", msg)
}

func isTokenBoundary(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '"', '\'', '/', '@', ':':
		return true
	default:
		return false
	}
}
