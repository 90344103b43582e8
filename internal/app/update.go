package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"triage/internal/client"
	"triage/internal/types"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		if m.mode != uiModeNormal {
			return m.updateInputMode(msg)
		}
		return m.updateNormalMode(msg)

	case spinner.TickMsg:
		if !m.spinning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case appStateLoadedMsg:
		m.sidebarOff = msg.state.SidebarCollapsed
		m.search = msg.state.IssueSearch
		m.labelFilter = msg.state.IssueLabelFilter
		if msg.state.ActiveRepoID != "" {
			for i, repo := range m.repos {
				if repo.ID == msg.state.ActiveRepoID {
					m.repoIndex = i
					return m, m.loadIssuesCmd(repo.ID)
				}
			}
		}
		return m, nil

	case reposLoadedMsg:
		m.repos = msg.repos
		m.repoIndex = clampIndex(m.repoIndex, len(m.repos))
		if repo := m.selectedRepo(); repo != nil {
			return m, m.loadIssuesCmd(repo.ID)
		}
		m.issues = nil
		return m, nil

	case issuesLoadedMsg:
		if repo := m.selectedRepo(); repo == nil || repo.ID != msg.repoID {
			return m, nil
		}
		m.issues = msg.issues
		m.issueIndex = clampIndex(m.issueIndex, len(m.issues))
		if issue := m.selectedIssue(); issue != nil {
			return m, m.lookupSessionCmd(issue.ID)
		}
		m.activeSession = nil
		m.lastUpdate = nil
		return m, nil

	case issueUpdatesLoadedMsg:
		m.issueUpdates = msg.updates
		return m, nil

	case repoConnectedMsg:
		m.setStatus("connected " + msg.resp.Repo.Owner + "/" + msg.resp.Repo.Name)
		m.spinning = false
		return m, m.loadReposCmd()

	case repoDeletedMsg:
		m.setStatus("repository disconnected")
		m.issues = nil
		m.activeSession = nil
		m.lastUpdate = nil
		return m, tea.Batch(m.loadReposCmd(), m.saveAppStateCmd())

	case resyncedMsg:
		m.setStatus("resynced")
		m.spinning = false
		return m, tea.Batch(m.loadReposCmd(), m.loadIssuesCmd(msg.repoID))

	case scopedMsg:
		m.setStatus("scoping session started")
		m.spinning = false
		return m, m.lookupSessionCmd(msg.issueID)

	case sessionLookupMsg:
		if issue := m.selectedIssue(); issue == nil || issue.ID != msg.issueID {
			return m, nil
		}
		m.activeSession = msg.session
		if msg.session == nil {
			m.lastUpdate = nil
		}
		return m, nil

	case sessionUpdateMsg:
		if m.activeSession == nil || m.activeSession.SessionID != msg.update.SessionID {
			return m, nil
		}
		update := msg.update
		m.lastUpdate = &update
		if update.Detail != nil {
			m.activeSession.Status = update.Detail.Status
		}
		if update.Detail != nil && update.Detail.Status == types.SessionStatusFinished {
			return m, m.loadIssueUpdatesCmd()
		}
		return m, nil

	case actionDoneMsg:
		m.setStatus(msg.status)
		m.spinning = false
		if issue := m.selectedIssue(); issue != nil {
			return m, m.lookupSessionCmd(issue.ID)
		}
		return m, nil

	case errMsg:
		m.setError(msg.err)
		m.spinning = false
		return m, nil
	}

	return m, nil
}

func (m *Model) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		if m.focus == focusSidebar {
			m.focus = focusIssues
		} else {
			m.focus = focusSidebar
		}
		return m, nil

	case "b":
		m.sidebarOff = !m.sidebarOff
		return m, m.saveAppStateCmd()

	case "up", "k":
		return m.moveSelection(-1)

	case "down", "j":
		return m.moveSelection(1)

	case "c":
		m.connectURL = ""
		return m.enterInput(uiModeConnectURL, "Repository URL", "https://github.com/owner/repo"), nil

	case "R":
		if repo := m.selectedRepo(); repo != nil {
			m.spinning = true
			m.setStatus("resyncing " + repo.Owner + "/" + repo.Name)
			return m, tea.Batch(m.spin.Tick, m.resyncCmd(repo.ID))
		}
		return m, nil

	case "D":
		if m.selectedRepo() != nil {
			m.mode = uiModeConfirmDelete
		}
		return m, nil

	case "/":
		model := m.enterInput(uiModeSearch, "Search issues", "")
		model.input.SetValue(m.search)
		return model, nil

	case "l":
		model := m.enterInput(uiModeLabel, "Filter by label", "")
		model.input.SetValue(m.labelFilter)
		return model, nil

	case "s":
		if issue := m.selectedIssue(); issue != nil {
			if m.activeSession != nil && !m.activeSession.Status.Terminal() {
				m.lastErr = "issue already has an active session"
				return m, nil
			}
			return m.enterInput(uiModeScopeContext, "Additional context (optional)", ""), nil
		}
		return m, nil

	case "f":
		if m.activeSession != nil && !m.activeSession.Status.Terminal() {
			return m.enterInput(uiModeFollowUp, "Follow-up message", ""), nil
		}
		return m, nil

	case "e":
		if m.activeSession == nil {
			return m, nil
		}
		model := m.enterInput(uiModeExecuteBranch, "Branch name", "")
		model.seedBranchInput()
		return model, nil

	case "x":
		if m.activeSession != nil && !m.activeSession.Status.Terminal() {
			m.spinning = true
			return m, tea.Batch(m.spin.Tick, m.cancelSessionCmd(m.activeSession.SessionID))
		}
		return m, nil

	case "y":
		if url := m.currentPRURL(); url != "" {
			if _, err := copyTextToClipboard(url); err != nil {
				m.lastErr = "copy failed: " + err.Error()
			} else {
				m.setStatus("PR URL copied")
			}
		}
		return m, nil

	case "enter":
		if m.focus == focusSidebar {
			m.focus = focusIssues
			return m, nil
		}
		if issue := m.selectedIssue(); issue != nil {
			return m, m.lookupSessionCmd(issue.ID)
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) moveSelection(delta int) (tea.Model, tea.Cmd) {
	if m.focus == focusSidebar {
		prev := m.repoIndex
		m.repoIndex = clampIndex(m.repoIndex+delta, len(m.repos))
		if m.repoIndex != prev {
			m.issueIndex = 0
			m.activeSession = nil
			m.lastUpdate = nil
			if repo := m.selectedRepo(); repo != nil {
				return m, tea.Batch(m.loadIssuesCmd(repo.ID), m.saveAppStateCmd())
			}
		}
		return m, nil
	}

	prev := m.issueIndex
	m.issueIndex = clampIndex(m.issueIndex+delta, len(m.issues))
	if m.issueIndex != prev {
		m.activeSession = nil
		m.lastUpdate = nil
		if issue := m.selectedIssue(); issue != nil {
			return m, m.lookupSessionCmd(issue.ID)
		}
	}
	return m, nil
}

func (m *Model) enterInput(mode uiMode, prompt, placeholder string) *Model {
	m.mode = mode
	m.input.Prompt = prompt + ": "
	m.input.Placeholder = placeholder
	m.input.SetValue("")
	m.input.Focus()
	return m
}

// seedBranchInput pre-fills the branch field from the latest scope
// suggestion, once per session. A branch the user already typed or a
// previously seeded value is never overwritten by a newer poll.
func (m *Model) seedBranchInput() {
	if m.activeSession == nil {
		return
	}
	if m.branchSeededSession == m.activeSession.SessionID {
		m.input.SetValue(m.executeBranch)
		return
	}
	suggestion := ""
	if m.lastUpdate != nil && m.lastUpdate.Output != nil {
		suggestion = m.lastUpdate.Output.BranchSuggestion
	}
	m.executeBranch = suggestion
	m.branchSeededSession = m.activeSession.SessionID
	m.input.SetValue(suggestion)
}

func (m *Model) updateInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = uiModeNormal
		m.input.Blur()
		return m, nil

	case "enter":
		return m.submitInput()

	case "y":
		if m.mode == uiModeConfirmDelete {
			m.mode = uiModeNormal
			if repo := m.selectedRepo(); repo != nil {
				m.spinning = true
				return m, tea.Batch(m.spin.Tick, m.deleteRepoCmd(repo.ID))
			}
			return m, nil
		}

	case "n":
		if m.mode == uiModeConfirmDelete {
			m.mode = uiModeNormal
			return m, nil
		}
	}

	if m.mode == uiModeConfirmDelete {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submitInput() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())

	switch m.mode {
	case uiModeConnectURL:
		if value == "" {
			return m, nil
		}
		m.connectURL = value
		model := m.enterInput(uiModeConnectPAT, "GitHub PAT", "ghp_...")
		model.input.EchoMode = textinput.EchoPassword
		return model, nil

	case uiModeConnectPAT:
		m.input.EchoMode = textinput.EchoNormal
		m.mode = uiModeNormal
		m.input.Blur()
		if value == "" {
			return m, nil
		}
		m.spinning = true
		m.setStatus("connecting " + m.connectURL)
		return m, tea.Batch(m.spin.Tick, m.connectCmd(m.connectURL, value))

	case uiModeSearch:
		m.mode = uiModeNormal
		m.input.Blur()
		m.search = value
		m.issueIndex = 0
		if repo := m.selectedRepo(); repo != nil {
			return m, tea.Batch(m.loadIssuesCmd(repo.ID), m.saveAppStateCmd())
		}
		return m, m.saveAppStateCmd()

	case uiModeLabel:
		m.mode = uiModeNormal
		m.input.Blur()
		m.labelFilter = value
		m.issueIndex = 0
		if repo := m.selectedRepo(); repo != nil {
			return m, tea.Batch(m.loadIssuesCmd(repo.ID), m.saveAppStateCmd())
		}
		return m, m.saveAppStateCmd()

	case uiModeScopeContext:
		m.mode = uiModeNormal
		m.input.Blur()
		issue := m.selectedIssue()
		if issue == nil {
			return m, nil
		}
		m.spinning = true
		m.setStatus("starting scope session")
		return m, tea.Batch(m.spin.Tick, m.scopeCmd(issue.ID, value))

	case uiModeFollowUp:
		m.mode = uiModeNormal
		m.input.Blur()
		if value == "" || m.activeSession == nil {
			return m, nil
		}
		m.spinning = true
		return m, tea.Batch(m.spin.Tick, m.messageCmd(m.activeSession.SessionID, value))

	case uiModeExecuteBranch:
		if value == "" {
			return m, nil
		}
		m.executeBranch = value
		model := m.enterInput(uiModeExecuteTarget, "Target branch", m.defaultTarget)
		model.input.SetValue(m.defaultTarget)
		return model, nil

	case uiModeExecuteTarget:
		m.mode = uiModeNormal
		m.input.Blur()
		if m.activeSession == nil {
			return m, nil
		}
		target := value
		if target == "" {
			target = m.defaultTarget
		}
		m.spinning = true
		m.setStatus("starting execution")
		return m, tea.Batch(m.spin.Tick, m.executeCmd(m.activeSession.IssueID, client.ExecuteRequest{
			SessionID:    m.activeSession.SessionID,
			BranchName:   m.executeBranch,
			TargetBranch: target,
			Approved:     true,
		}))
	}

	m.mode = uiModeNormal
	m.input.Blur()
	return m, nil
}

// currentPRURL prefers the live session's pull request, falling back to
// the persisted per-issue update.
func (m *Model) currentPRURL() string {
	if m.lastUpdate != nil && m.lastUpdate.Detail != nil && m.lastUpdate.Detail.PullRequest != nil {
		return m.lastUpdate.Detail.PullRequest.URL
	}
	if m.lastUpdate != nil && m.lastUpdate.Output != nil && m.lastUpdate.Output.PRURL != "" {
		return m.lastUpdate.Output.PRURL
	}
	if issue := m.selectedIssue(); issue != nil {
		if update, ok := m.issueUpdates[issue.ID]; ok {
			return update.PRURL
		}
	}
	return ""
}
