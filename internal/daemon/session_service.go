package daemon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"triage/internal/devin"
	"triage/internal/logging"
	"triage/internal/session"
	"triage/internal/types"
)

type SessionService struct {
	agent       devin.Service
	repos       *RepoStore
	issues      *IssueStore
	registry    *SessionRegistry
	logger      logging.Logger
	autoApprove bool
}

func NewSessionService(agent devin.Service, repos *RepoStore, issues *IssueStore, registry *SessionRegistry, autoApprove bool, logger logging.Logger) *SessionService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &SessionService{
		agent:       agent,
		repos:       repos,
		issues:      issues,
		registry:    registry,
		logger:      logger,
		autoApprove: autoApprove,
	}
}

type ScopeResult struct {
	SessionID string
	URL       string
}

// Scope starts an agent session for an issue. At most one live session
// per issue: a second scope while the first is non-terminal conflicts.
func (s *SessionService) Scope(ctx context.Context, issueID int64, additionalContext string) (*ScopeResult, error) {
	issue, repoID, ok := s.issues.Find(issueID)
	if !ok {
		return nil, notFoundError("Issue not found", nil)
	}
	if existing, live := s.registry.ActiveForIssue(issueID); live {
		return nil, conflictError(
			fmt.Sprintf("Issue already has an active session (%s)", existing.SessionID), nil)
	}
	repo, _, ok := s.repos.Get(repoID)
	if !ok {
		return nil, notFoundError("Repository not found", nil)
	}

	created, err := s.agent.CreateSession(ctx, devin.CreateSessionRequest{
		Prompt:           scopePrompt(&repo, &issue, additionalContext),
		Title:            fmt.Sprintf("Scope issue #%d: %s", issue.Number, issue.Title),
		RepoFullName:     repo.FullName(),
		BranchSuggestion: fmt.Sprintf("feat/issue-%d-implementation", issue.Number),
	})
	if err != nil {
		return nil, unavailableError("Failed to start a scoping session", err)
	}

	s.registry.Add(types.ActiveSession{
		SessionID:  created.SessionID,
		IssueID:    issueID,
		RepoID:     repoID,
		IssueTitle: issue.Title,
		RepoName:   repo.FullName(),
		Status:     types.SessionStatusInitializing,
	})
	s.logger.Info("session_scoped",
		logging.F("session_id", created.SessionID),
		logging.F("issue_id", issueID),
		logging.F("repo", repo.FullName()),
	)
	return &ScopeResult{SessionID: created.SessionID, URL: created.URL}, nil
}

// SessionForIssue reports the live session for an issue, if any.
func (s *SessionService) SessionForIssue(ctx context.Context, issueID int64) (types.ActiveSession, bool) {
	return s.registry.ActiveForIssue(issueID)
}

// Detail proxies the agent's per-session view and keeps the registry's
// status mirror current. A session the agent no longer knows is evicted.
func (s *SessionService) Detail(ctx context.Context, sessionID string) (*types.SessionDetail, error) {
	detail, err := s.agent.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, devin.ErrSessionNotFound) {
			s.registry.Remove(sessionID)
			return nil, notFoundError("Session not found", nil)
		}
		return nil, unavailableError("Failed to fetch session status", err)
	}
	s.registry.UpdateStatus(sessionID, detail.Status)
	return detail, nil
}

// Message sends a follow-up into a live scoping session.
func (s *SessionService) Message(ctx context.Context, sessionID, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return invalidError("Message is required", nil)
	}
	if _, ok := s.registry.Get(sessionID); !ok {
		return notFoundError("Session not found", nil)
	}
	if err := s.agent.SendMessage(ctx, sessionID, message); err != nil {
		if errors.Is(err, devin.ErrSessionNotFound) {
			s.registry.Remove(sessionID)
			return notFoundError("Session not found", nil)
		}
		return unavailableError("Failed to send follow-up message", err)
	}
	s.logger.Info("session_message", logging.F("session_id", sessionID))
	return nil
}

type ExecuteParams struct {
	BranchName        string
	TargetBranch      string
	Approved          bool
	AdditionalContext string
}

// Execute moves a scoped session into implementation. The session must
// belong to the issue it is executed under, and the caller must approve
// the plan explicitly unless auto-approval is configured and the scope
// ended high-confidence with a branch suggestion.
func (s *SessionService) Execute(ctx context.Context, issueID int64, sessionID string, params ExecuteParams) error {
	sess, ok := s.registry.Get(sessionID)
	if !ok {
		return notFoundError("Session not found", nil)
	}
	if sess.IssueID != issueID {
		return invalidError("Session does not belong to this issue", nil)
	}
	if strings.TrimSpace(params.BranchName) == "" {
		return invalidError("Branch name is required", nil)
	}
	if strings.TrimSpace(params.TargetBranch) == "" {
		return invalidError("Target branch is required", nil)
	}

	if !params.Approved {
		approved, err := s.autoApproved(ctx, sessionID)
		if err != nil {
			return err
		}
		if !approved {
			return invalidError("Plan must be approved before execution", nil)
		}
	}

	err := s.agent.Execute(ctx, sessionID, devin.ExecuteRequest{
		BranchName:        params.BranchName,
		TargetBranch:      params.TargetBranch,
		AdditionalContext: params.AdditionalContext,
	})
	if err != nil {
		if errors.Is(err, devin.ErrSessionNotFound) {
			s.registry.Remove(sessionID)
			return notFoundError("Session not found", nil)
		}
		return unavailableError("Failed to start execution", err)
	}
	s.registry.UpdateStatus(sessionID, types.SessionStatusRunning)
	s.logger.Info("session_executing",
		logging.F("session_id", sessionID),
		logging.F("issue_id", issueID),
		logging.F("branch", params.BranchName),
		logging.F("target", params.TargetBranch),
	)
	return nil
}

func (s *SessionService) autoApproved(ctx context.Context, sessionID string) (bool, error) {
	if !s.autoApprove {
		return false, nil
	}
	detail, err := s.agent.GetSession(ctx, sessionID)
	if err != nil {
		return false, unavailableError("Failed to fetch session status", err)
	}
	out := session.Normalize(detail.StructuredOutput)
	if out == nil {
		return false, nil
	}
	return out.Confidence == session.ConfidenceHigh && out.BranchSuggestion != "", nil
}

func (s *SessionService) Cancel(ctx context.Context, sessionID string) error {
	if _, ok := s.registry.Get(sessionID); !ok {
		return notFoundError("Session not found", nil)
	}
	if err := s.agent.Cancel(ctx, sessionID); err != nil {
		if errors.Is(err, devin.ErrSessionNotFound) {
			s.registry.Remove(sessionID)
			return notFoundError("Session not found", nil)
		}
		return unavailableError("Failed to cancel session", err)
	}
	s.registry.UpdateStatus(sessionID, types.SessionStatusCancelled)
	s.logger.Info("session_cancelled", logging.F("session_id", sessionID))
	return nil
}

func (s *SessionService) Active(ctx context.Context) []types.ActiveSession {
	return s.registry.Active()
}

func scopePrompt(repo *types.Repo, issue *types.Issue, additionalContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scope the following GitHub issue from %s and produce an implementation plan.\n\n", repo.FullName())
	fmt.Fprintf(&b, "Issue #%d: %s\n\n", issue.Number, issue.Title)
	if issue.Body != "" {
		fmt.Fprintf(&b, "%s\n\n", issue.Body)
	}
	if len(issue.Labels) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(issue.Labels, ", "))
	}
	if additionalContext = strings.TrimSpace(additionalContext); additionalContext != "" {
		fmt.Fprintf(&b, "\nAdditional context from the user:\n%s\n", additionalContext)
	}
	b.WriteString("\nReport progress via structured output: progress_pct, confidence, summary, risks, dependencies, estimated_hours, action_plan, and branch_suggestion.")
	return b.String()
}
