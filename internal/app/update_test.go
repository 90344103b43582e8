package app

import (
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"triage/internal/client"
	"triage/internal/poller"
	"triage/internal/session"
	"triage/internal/types"
)

type fakeAPI struct {
	repos    []types.Repo
	issues   map[string][]types.Issue
	sessions map[int64]*types.ActiveSession

	scoped        []int64
	messages      []string
	executes      []client.ExecuteRequest
	executeIssues []int64
	cancelled     []string
	deleted       []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		issues:   map[string][]types.Issue{},
		sessions: map[int64]*types.ActiveSession{},
	}
}

func (f *fakeAPI) ListRepos(ctx context.Context) ([]types.Repo, error) {
	return f.repos, nil
}

func (f *fakeAPI) ConnectRepo(ctx context.Context, repoURL, pat string) (*client.ConnectRepoResponse, error) {
	repo := types.Repo{ID: "new", Owner: "octo", Name: "repo"}
	f.repos = append(f.repos, repo)
	return &client.ConnectRepoResponse{ID: "new", Repo: repo}, nil
}

func (f *fakeAPI) DeleteRepo(ctx context.Context, repoID string) error {
	f.deleted = append(f.deleted, repoID)
	return nil
}

func (f *fakeAPI) ResyncRepo(ctx context.Context, repoID string) (*client.ResyncResponse, error) {
	return &client.ResyncResponse{IssuesCount: len(f.issues[repoID])}, nil
}

func (f *fakeAPI) ListIssues(ctx context.Context, repoID string, query client.IssueQuery) ([]types.Issue, error) {
	issues := f.issues[repoID]
	if query.Q == "" {
		return issues, nil
	}
	var out []types.Issue
	for _, issue := range issues {
		if strings.Contains(strings.ToLower(issue.Title), strings.ToLower(query.Q)) {
			out = append(out, issue)
		}
	}
	return out, nil
}

func (f *fakeAPI) ScopeIssue(ctx context.Context, issueID int64, additionalContext string) (*client.ScopeResponse, error) {
	f.scoped = append(f.scoped, issueID)
	sess := &types.ActiveSession{SessionID: "sess-1", IssueID: issueID,
		Status: types.SessionStatusInitializing}
	f.sessions[issueID] = sess
	return &client.ScopeResponse{SessionID: "sess-1"}, nil
}

func (f *fakeAPI) SessionForIssue(ctx context.Context, issueID int64) (*types.ActiveSession, error) {
	return f.sessions[issueID], nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, sessionID, message string) error {
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeAPI) Execute(ctx context.Context, issueID int64, req client.ExecuteRequest) (*client.ExecuteResponse, error) {
	f.executes = append(f.executes, req)
	f.executeIssues = append(f.executeIssues, issueID)
	return &client.ExecuteResponse{SessionID: req.SessionID, Message: "Execution started"}, nil
}

func (f *fakeAPI) CancelSession(ctx context.Context, sessionID string) error {
	f.cancelled = append(f.cancelled, sessionID)
	return nil
}

func drain(t *testing.T, m *Model, cmd tea.Cmd) *Model {
	t.Helper()
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return m
		}
		// Spinner ticks re-arm themselves forever; not interesting here.
		if _, ok := msg.(spinner.TickMsg); ok {
			return m
		}
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, sub := range batch {
				m = drain(t, m, sub)
			}
			return m
		}
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(*Model)
	}
	return m
}

func newTestModel(t *testing.T) (*Model, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	api.repos = []types.Repo{{ID: "r1", Owner: "octo", Name: "hello", OpenIssuesCount: 2}}
	api.issues["r1"] = []types.Issue{
		{ID: 11, Number: 1, Title: "Fix crash", Body: "details", AgeDays: 3},
		{ID: 12, Number: 2, Title: "Add feature", AgeDays: 1},
	}

	m := NewModel(Options{API: api})
	m = drain(t, m, m.Init())
	var next tea.Model
	next, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(*Model)
	return m, api
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press(t *testing.T, m *Model, keys ...string) *Model {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(key(k))
		m = next.(*Model)
		m = drain(t, m, cmd)
	}
	return m
}

func typeText(t *testing.T, m *Model, text string) *Model {
	t.Helper()
	for _, r := range text {
		next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(*Model)
		m = drain(t, m, cmd)
	}
	return m
}

func TestInitialLoadSelectsFirstRepo(t *testing.T) {
	m, _ := newTestModel(t)
	if len(m.repos) != 1 || len(m.issues) != 2 {
		t.Fatalf("repos=%d issues=%d", len(m.repos), len(m.issues))
	}
	view := m.View()
	if !strings.Contains(view, "octo/hello") {
		t.Fatalf("sidebar missing repo:\n%s", view)
	}
	if !strings.Contains(view, "Fix crash") {
		t.Fatalf("issue list missing issue:\n%s", view)
	}
}

func TestScopeFlow(t *testing.T) {
	m, api := newTestModel(t)

	m = press(t, m, "s")
	if m.mode != uiModeScopeContext {
		t.Fatalf("mode = %d", m.mode)
	}
	m = typeText(t, m, "small fix please")
	m = press(t, m, "enter")

	if len(api.scoped) != 1 || api.scoped[0] != 11 {
		t.Fatalf("scoped = %v", api.scoped)
	}
	if m.activeSession == nil || m.activeSession.SessionID != "sess-1" {
		t.Fatalf("active session = %+v", m.activeSession)
	}
}

func TestScopeBlockedWhileSessionActive(t *testing.T) {
	m, api := newTestModel(t)
	m = press(t, m, "s", "enter")
	if len(api.scoped) != 1 {
		t.Fatalf("setup scope failed: %v", api.scoped)
	}

	m = press(t, m, "s")
	if m.mode != uiModeNormal {
		t.Fatal("second scope should not open the input")
	}
	if m.lastErr == "" {
		t.Fatal("expected an error message")
	}
}

func TestFollowUpFlow(t *testing.T) {
	m, api := newTestModel(t)
	m = press(t, m, "s", "enter")

	m = press(t, m, "f")
	m = typeText(t, m, "check the tests too")
	m = press(t, m, "enter")

	if len(api.messages) != 1 || api.messages[0] != "check the tests too" {
		t.Fatalf("messages = %v", api.messages)
	}
}

func TestExecuteSeedsBranchOnce(t *testing.T) {
	m, api := newTestModel(t)
	m = press(t, m, "s", "enter")

	update := poller.Update{
		SessionID: "sess-1",
		Detail: &types.SessionDetail{
			Status: types.SessionStatusRunning,
			StructuredOutput: map[string]any{
				"status":            "scoping",
				"branch_suggestion": "feat/from-scope",
			},
		},
	}
	update.Output = session.Normalize(update.Detail.StructuredOutput)
	next, _ := m.Update(sessionUpdateMsg{update: update})
	m = next.(*Model)

	m = press(t, m, "e")
	if m.mode != uiModeExecuteBranch {
		t.Fatalf("mode = %d", m.mode)
	}
	if m.input.Value() != "feat/from-scope" {
		t.Fatalf("branch not seeded: %q", m.input.Value())
	}

	// Abort, deliver a newer suggestion, reopen: the seed must not
	// repeat for the same session.
	m = press(t, m, "esc")
	update2 := update
	update2.Detail = &types.SessionDetail{
		Status: types.SessionStatusRunning,
		StructuredOutput: map[string]any{
			"branch_suggestion": "feat/other",
		},
	}
	update2.Output = session.Normalize(update2.Detail.StructuredOutput)
	next, _ = m.Update(sessionUpdateMsg{update: update2})
	m = next.(*Model)

	m = press(t, m, "e")
	if m.input.Value() != "feat/from-scope" {
		t.Fatalf("seed repeated: %q", m.input.Value())
	}

	m = press(t, m, "enter") // accept branch
	m = press(t, m, "enter") // accept default target
	if len(api.executes) != 1 {
		t.Fatalf("executes = %v", api.executes)
	}
	req := api.executes[0]
	if req.BranchName != "feat/from-scope" || req.TargetBranch != "main" || !req.Approved {
		t.Fatalf("unexpected execute request: %+v", req)
	}
	if api.executeIssues[0] != 11 {
		t.Fatalf("execute issue = %d, want 11", api.executeIssues[0])
	}
}

func TestCancelSession(t *testing.T) {
	m, api := newTestModel(t)
	m = press(t, m, "s", "enter")

	m = press(t, m, "x")
	if len(api.cancelled) != 1 || api.cancelled[0] != "sess-1" {
		t.Fatalf("cancelled = %v", api.cancelled)
	}
}

func TestSearchReloadsIssues(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "/")
	m = typeText(t, m, "crash")
	m = press(t, m, "enter")

	if len(m.issues) != 1 || m.issues[0].ID != 11 {
		t.Fatalf("filtered issues = %+v", m.issues)
	}
	if m.search != "crash" {
		t.Fatalf("search = %q", m.search)
	}
}

func TestDeleteRepoConfirm(t *testing.T) {
	m, api := newTestModel(t)

	m = press(t, m, "D")
	if m.mode != uiModeConfirmDelete {
		t.Fatalf("mode = %d", m.mode)
	}
	m = press(t, m, "n")
	if len(api.deleted) != 0 {
		t.Fatal("delete ran after 'n'")
	}

	m = press(t, m, "D", "y")
	if len(api.deleted) != 1 || api.deleted[0] != "r1" {
		t.Fatalf("deleted = %v", api.deleted)
	}
}

func TestSessionUpdateIgnoredForOtherSession(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "s", "enter")

	next, _ := m.Update(sessionUpdateMsg{update: poller.Update{SessionID: "other"}})
	m = next.(*Model)
	if m.lastUpdate != nil {
		t.Fatal("update for another session applied")
	}
}

func TestViewShowsSessionPanel(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "s", "enter")

	update := poller.Update{
		SessionID: "sess-1",
		Detail: &types.SessionDetail{
			Status: types.SessionStatusRunning,
			StructuredOutput: map[string]any{
				"progress_pct": float64(55),
				"confidence":   "high",
				"summary":      "Plan in progress",
				"status":       "scoping",
				"action_plan": []any{
					map[string]any{"step": float64(1), "desc": "Analyze", "done": true},
					map[string]any{"step": float64(2), "desc": "Implement", "done": false},
				},
			},
		},
	}
	update.Output = session.Normalize(update.Detail.StructuredOutput)
	next, _ := m.Update(sessionUpdateMsg{update: update})
	m = next.(*Model)

	view := m.View()
	if !strings.Contains(view, "Scoping") {
		t.Fatalf("missing status badge:\n%s", view)
	}
	if !strings.Contains(view, "55%") {
		t.Fatalf("missing progress:\n%s", view)
	}
	if !strings.Contains(view, "Analyze") {
		t.Fatalf("missing plan step:\n%s", view)
	}
}
