package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"triage/internal/client"
	"triage/internal/poller"
	"triage/internal/types"
)

type reposLoadedMsg struct {
	repos []types.Repo
}

type issuesLoadedMsg struct {
	repoID string
	issues []types.Issue
}

type repoConnectedMsg struct {
	resp *client.ConnectRepoResponse
}

type repoDeletedMsg struct {
	repoID string
}

type resyncedMsg struct {
	repoID      string
	issuesCount int
}

type scopedMsg struct {
	issueID   int64
	sessionID string
}

type sessionLookupMsg struct {
	issueID int64
	session *types.ActiveSession
}

// sessionUpdateMsg carries one polled observation into the UI. The
// poller's sink forwards these via Program.Send.
type sessionUpdateMsg struct {
	update poller.Update
}

// SessionUpdate wraps a polled update for delivery to the program.
func SessionUpdate(update poller.Update) tea.Msg {
	return sessionUpdateMsg{update: update}
}

type issueUpdatesLoadedMsg struct {
	updates map[int64]types.IssueUpdate
}

type actionDoneMsg struct {
	status string
}

type errMsg struct {
	err error
}
