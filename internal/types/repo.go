package types

import "time"

// Repo is a connected GitHub repository. The PAT used to connect it is
// held server-side only and never serialized into responses.
type Repo struct {
	ID              string    `json:"id"`
	Owner           string    `json:"owner"`
	Name            string    `json:"name"`
	URL             string    `json:"url"`
	ConnectedAt     time.Time `json:"connectedAt"`
	OpenIssuesCount int       `json:"openIssuesCount"`
}

func (r *Repo) FullName() string {
	if r == nil {
		return ""
	}
	return r.Owner + "/" + r.Name
}
