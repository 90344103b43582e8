package types

// IssueUpdate is the last user-visible terminal outcome recorded for an
// issue (e.g. "PR Submitted"), kept independently of whether the session
// that produced it is still tracked. The status label is free-form.
type IssueUpdate struct {
	Status string `json:"status"`
	PRURL  string `json:"prUrl,omitempty"`
}

const IssueUpdatePRSubmitted = "PR Submitted"
