package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"triage/internal/client"
	"triage/internal/poller"
	"triage/internal/store"
	"triage/internal/types"
)

const (
	minSidebarWidth  = 22
	maxSidebarWidth  = 36
	minContentHeight = 6
	requestTimeout   = 30 * time.Second
)

type focusArea int

const (
	focusSidebar focusArea = iota
	focusIssues
)

type uiMode int

const (
	uiModeNormal uiMode = iota
	uiModeConnectURL
	uiModeConnectPAT
	uiModeScopeContext
	uiModeFollowUp
	uiModeExecuteBranch
	uiModeExecuteTarget
	uiModeSearch
	uiModeLabel
	uiModeConfirmDelete
)

type Model struct {
	api     DaemonAPI
	states  store.AppStateStore
	updates store.IssueUpdateStore

	width  int
	height int
	ready  bool

	focus   focusArea
	mode    uiMode
	status  string
	lastErr string

	repos        []types.Repo
	repoIndex    int
	issues       []types.Issue
	issueIndex   int
	issueUpdates map[int64]types.IssueUpdate

	search      string
	labelFilter string
	sidebarOff  bool

	// Session state for the selected issue.
	activeSession *types.ActiveSession
	lastUpdate    *poller.Update

	// connectURL holds the first half of the two-step connect form
	// while the PAT is being typed.
	connectURL string

	// Execute-form branch seeding happens at most once per session so
	// a typed-over branch name is never clobbered by a fresh poll.
	branchSeededSession string
	executeBranch       string
	defaultTarget       string

	input    textinput.Model
	spin     spinner.Model
	spinning bool
}

type Options struct {
	API           DaemonAPI
	States        store.AppStateStore
	Updates       store.IssueUpdateStore
	DefaultTarget string
}

func NewModel(opts Options) *Model {
	input := textinput.New()
	input.CharLimit = 512
	input.Width = 60

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot

	target := opts.DefaultTarget
	if target == "" {
		target = "main"
	}

	return &Model{
		api:           opts.API,
		states:        opts.States,
		updates:       opts.Updates,
		issueUpdates:  map[int64]types.IssueUpdate{},
		input:         input,
		spin:          spin,
		defaultTarget: target,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadAppStateCmd(),
		m.loadReposCmd(),
		m.loadIssueUpdatesCmd(),
	)
}

func (m *Model) selectedRepo() *types.Repo {
	if m.repoIndex < 0 || m.repoIndex >= len(m.repos) {
		return nil
	}
	return &m.repos[m.repoIndex]
}

func (m *Model) selectedIssue() *types.Issue {
	if m.issueIndex < 0 || m.issueIndex >= len(m.issues) {
		return nil
	}
	return &m.issues[m.issueIndex]
}

func (m *Model) sidebarWidth() int {
	if m.sidebarOff {
		return 0
	}
	w := m.width / 4
	if w < minSidebarWidth {
		w = minSidebarWidth
	}
	if w > maxSidebarWidth {
		w = maxSidebarWidth
	}
	return w
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.lastErr = ""
}

func (m *Model) setError(err error) {
	if err == nil {
		return
	}
	if apiErr := client.AsAPIError(err); apiErr != nil {
		m.lastErr = apiErr.Message
		return
	}
	m.lastErr = err.Error()
}

func (m *Model) loadAppStateCmd() tea.Cmd {
	if m.states == nil {
		return nil
	}
	states := m.states
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		state, err := states.Load(ctx)
		if err != nil || state == nil {
			return nil
		}
		return appStateLoadedMsg{state: *state}
	}
}

type appStateLoadedMsg struct {
	state types.AppState
}

func (m *Model) saveAppStateCmd() tea.Cmd {
	if m.states == nil {
		return nil
	}
	state := types.AppState{
		SidebarCollapsed: m.sidebarOff,
		IssueSearch:      m.search,
		IssueLabelFilter: m.labelFilter,
	}
	if repo := m.selectedRepo(); repo != nil {
		state.ActiveRepoID = repo.ID
	}
	states := m.states
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_ = states.Save(ctx, &state)
		return nil
	}
}

func (m *Model) loadReposCmd() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		repos, err := api.ListRepos(ctx)
		if err != nil {
			return errMsg{err}
		}
		return reposLoadedMsg{repos: repos}
	}
}

func (m *Model) loadIssuesCmd(repoID string) tea.Cmd {
	api := m.api
	query := client.IssueQuery{Q: m.search, Label: m.labelFilter, PageSize: 100}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		issues, err := api.ListIssues(ctx, repoID, query)
		if err != nil {
			return errMsg{err}
		}
		return issuesLoadedMsg{repoID: repoID, issues: issues}
	}
}

func (m *Model) loadIssueUpdatesCmd() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	updates := m.updates
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		all, err := updates.All(ctx)
		if err != nil {
			return nil
		}
		return issueUpdatesLoadedMsg{updates: all}
	}
}

func (m *Model) lookupSessionCmd(issueID int64) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		session, err := api.SessionForIssue(ctx, issueID)
		if err != nil {
			return errMsg{err}
		}
		return sessionLookupMsg{issueID: issueID, session: session}
	}
}

func (m *Model) connectCmd(repoURL, pat string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		resp, err := api.ConnectRepo(ctx, repoURL, pat)
		if err != nil {
			return errMsg{err}
		}
		return repoConnectedMsg{resp: resp}
	}
}

func (m *Model) deleteRepoCmd(repoID string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := api.DeleteRepo(ctx, repoID); err != nil {
			return errMsg{err}
		}
		return repoDeletedMsg{repoID: repoID}
	}
}

func (m *Model) resyncCmd(repoID string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		resp, err := api.ResyncRepo(ctx, repoID)
		if err != nil {
			return errMsg{err}
		}
		return resyncedMsg{repoID: repoID, issuesCount: resp.IssuesCount}
	}
}

func (m *Model) scopeCmd(issueID int64, additionalContext string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		resp, err := api.ScopeIssue(ctx, issueID, additionalContext)
		if err != nil {
			return errMsg{err}
		}
		return scopedMsg{issueID: issueID, sessionID: resp.SessionID}
	}
}

func (m *Model) messageCmd(sessionID, message string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := api.SendMessage(ctx, sessionID, message); err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{status: "follow-up sent"}
	}
}

func (m *Model) executeCmd(issueID int64, req client.ExecuteRequest) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if _, err := api.Execute(ctx, issueID, req); err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{status: "execution started on " + req.BranchName}
	}
}

func (m *Model) cancelSessionCmd(sessionID string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := api.CancelSession(ctx, sessionID); err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{status: "session cancelled"}
	}
}

func clampIndex(i, n int) int {
	if n == 0 {
		return 0
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func joinColumns(cols ...string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}
