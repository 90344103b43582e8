package types

// AppState is the persisted UI state restored on the next launch.
type AppState struct {
	ActiveRepoID     string `json:"active_repo_id,omitempty"`
	SidebarCollapsed bool   `json:"sidebar_collapsed,omitempty"`
	IssueSearch      string `json:"issue_search,omitempty"`
	IssueLabelFilter string `json:"issue_label_filter,omitempty"`
}
