package devin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"triage/internal/types"
)

const (
	simScopingStep   = 15
	simExecutingStep = 25
	simMessageBump   = 20
	simMessageCap    = 90
)

type simPhase int

const (
	simPhaseScoping simPhase = iota
	simPhaseExecuting
	simPhaseDone
	simPhaseCancelled
)

type simSession struct {
	id           string
	url          string
	repoFullName string
	branch       string
	phase        simPhase
	fetches      int
	progress     int
	confidence   string
	summary      string
	plan         []map[string]any
	prURL        string
	prCounter    int
}

// Simulator is an in-process stand-in for the Devin API. Progression is
// driven by fetch count so polling observably advances a session:
// scoping ramps to 90%, execute switches the phase, and the executing
// ramp terminates in a finished session with a pull request URL.
type Simulator struct {
	mu       sync.Mutex
	sessions map[string]*simSession
	prSeq    int
}

func NewSimulator() *Simulator {
	return &Simulator{sessions: map[string]*simSession{}}
}

func (s *Simulator) CreateSession(ctx context.Context, req CreateSessionRequest) (*CreatedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := "sim-" + uuid.NewString()
	branch := req.BranchSuggestion
	if branch == "" {
		branch = "feat/triage-implementation"
	}
	sess := &simSession{
		id:           id,
		url:          "https://app.devin.ai/sessions/" + id,
		repoFullName: req.RepoFullName,
		branch:       branch,
		phase:        simPhaseScoping,
		progress:     10,
		confidence:   "medium",
		summary:      "Analyzing issue requirements and creating implementation plan...",
		plan: []map[string]any{
			{"step": 1, "desc": "Analyze issue requirements", "done": false},
			{"step": 2, "desc": "Create implementation plan", "done": false},
			{"step": 3, "desc": "Identify potential risks", "done": false},
		},
	}
	s.sessions[id] = sess
	return &CreatedSession{SessionID: id, URL: sess.url}, nil
}

func (s *Simulator) GetSession(ctx context.Context, sessionID string) (*types.SessionDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.fetches++
	if sess.fetches == 1 && sess.phase == simPhaseScoping {
		// First observation: still spinning up.
		return &types.SessionDetail{
			Status: types.SessionStatusInitializing,
			URL:    sess.url,
		}, nil
	}
	s.advance(sess)
	return sess.detail(), nil
}

func (s *Simulator) advance(sess *simSession) {
	switch sess.phase {
	case simPhaseScoping:
		if sess.progress < simMessageCap {
			sess.progress = min(sess.progress+simScopingStep, simMessageCap)
		}
		if sess.progress >= 40 {
			sess.plan[0]["done"] = true
		}
		if sess.progress >= 70 {
			sess.plan[1]["done"] = true
			sess.confidence = "high"
		}
		if sess.progress >= simMessageCap {
			sess.plan[2]["done"] = true
			sess.summary = "Plan ready. Review the steps and execute to start implementation."
		}
	case simPhaseExecuting:
		sess.progress = min(sess.progress+simExecutingStep, 100)
		if sess.progress >= 100 {
			sess.phase = simPhaseDone
			s.prSeq++
			sess.prCounter = s.prSeq
			repo := sess.repoFullName
			if repo == "" {
				repo = "example/repo"
			}
			sess.prURL = fmt.Sprintf("https://github.com/%s/pull/%d", repo, sess.prCounter)
			sess.summary = "Implementation complete. Pull request opened."
		}
	}
}

func (sess *simSession) detail() *types.SessionDetail {
	status := types.SessionStatusRunning
	phase := "scoping"
	switch sess.phase {
	case simPhaseExecuting:
		phase = "executing"
	case simPhaseDone:
		status = types.SessionStatusFinished
		phase = "completed"
	case simPhaseCancelled:
		status = types.SessionStatusCancelled
	}

	out := map[string]any{
		"progress_pct":      float64(sess.progress),
		"confidence":        sess.confidence,
		"summary":           sess.summary,
		"risks":             []any{"Complexity may be higher than initially estimated"},
		"dependencies":      []any{"GitHub API access", "Repository permissions"},
		"estimated_hours":   float64(2),
		"action_plan":       planAsAny(sess.plan),
		"branch_suggestion": sess.branch,
		"pr_url":            sess.prURL,
		"status":            phase,
	}

	detail := &types.SessionDetail{
		Status:           status,
		StructuredOutput: out,
		URL:              sess.url,
	}
	if sess.prURL != "" {
		detail.PullRequest = &types.PullRequest{URL: sess.prURL}
	}
	return detail
}

func (s *Simulator) SendMessage(ctx context.Context, sessionID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if sess.phase != simPhaseScoping {
		return nil
	}
	sess.progress = min(sess.progress+simMessageBump, simMessageCap)
	sess.summary = "Updated plan based on feedback: " + truncateMessage(message)
	return nil
}

func (s *Simulator) Execute(ctx context.Context, sessionID string, req ExecuteRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if sess.phase == simPhaseDone || sess.phase == simPhaseCancelled {
		return nil
	}
	if req.BranchName != "" {
		sess.branch = req.BranchName
	}
	sess.phase = simPhaseExecuting
	sess.progress = 10
	sess.summary = "Implementing the approved plan on branch " + sess.branch
	return nil
}

func (s *Simulator) Cancel(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	sess.phase = simPhaseCancelled
	return nil
}

func planAsAny(plan []map[string]any) []any {
	out := make([]any, 0, len(plan))
	for _, step := range plan {
		out = append(out, step)
	}
	return out
}

func truncateMessage(message string) string {
	message = strings.TrimSpace(message)
	if len(message) > 50 {
		return message[:50] + "..."
	}
	return message
}
