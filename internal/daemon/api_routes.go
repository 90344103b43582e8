package daemon

import (
	"net/http"
	"strings"
)

func (api *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", api.handleHealth)
	mux.HandleFunc("/api/repos/connect", api.handleRepoConnect)
	mux.HandleFunc("/api/repos", api.handleRepoList)
	mux.HandleFunc("/api/repos/", api.handleRepoSubtree)
	mux.HandleFunc("/api/issues/", api.handleIssueSubtree)
	mux.HandleFunc("/api/devin/", api.handleDevinSubtree)
	mux.HandleFunc("/api/sessions/active", api.handleActiveSessions)
	mux.HandleFunc("/api/sessions/", api.handleSessionsSubtree)
	mux.HandleFunc("/api/shutdown", api.handleShutdown)
}

// splitSubpath cuts "/api/repos/{id}[/rest...]" after the prefix into
// the id and the remaining action path.
func splitSubpath(path, prefix string) (id, rest string) {
	trimmed := strings.TrimPrefix(path, prefix)
	if i := strings.Index(trimmed, "/"); i >= 0 {
		return trimmed[:i], trimmed[i+1:]
	}
	return trimmed, ""
}

func (api *API) handleRepoSubtree(w http.ResponseWriter, r *http.Request) {
	repoID, rest := splitSubpath(r.URL.Path, "/api/repos/")
	if repoID == "" {
		writeNotFound(w)
		return
	}
	switch rest {
	case "":
		if r.Method != http.MethodDelete {
			writeMethodNotAllowed(w)
			return
		}
		api.handleRepoDelete(w, r, repoID)
	case "resync":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		api.handleRepoResync(w, r, repoID)
	case "issues":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		api.handleRepoIssues(w, r, repoID)
	default:
		writeNotFound(w)
	}
}

func (api *API) handleIssueSubtree(w http.ResponseWriter, r *http.Request) {
	rawID, rest := splitSubpath(r.URL.Path, "/api/issues/")
	issueID, err := parseIssueID(rawID)
	if err != nil {
		writeNotFound(w)
		return
	}
	switch rest {
	case "scope":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		api.handleIssueScope(w, r, issueID)
	case "session":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		api.handleIssueSession(w, r, issueID)
	case "execute":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		api.handleIssueExecute(w, r, issueID)
	default:
		writeNotFound(w)
	}
}

// handleDevinSubtree serves the per-session agent proxy:
// GET /api/devin/{sessionId} and POST /api/devin/{sessionId}/message.
func (api *API) handleDevinSubtree(w http.ResponseWriter, r *http.Request) {
	sessionID, rest := splitSubpath(r.URL.Path, "/api/devin/")
	if sessionID == "" {
		writeNotFound(w)
		return
	}
	switch rest {
	case "":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		api.handleSessionDetail(w, r, sessionID)
	case "message":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		api.handleSessionMessage(w, r, sessionID)
	default:
		writeNotFound(w)
	}
}

// handleSessionsSubtree serves DELETE /api/sessions/{sessionId}. The
// exact /api/sessions/active pattern wins over this prefix, so "active"
// never reaches here.
func (api *API) handleSessionsSubtree(w http.ResponseWriter, r *http.Request) {
	sessionID, rest := splitSubpath(r.URL.Path, "/api/sessions/")
	if sessionID == "" || rest != "" {
		writeNotFound(w)
		return
	}
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}
	api.handleSessionCancel(w, r, sessionID)
}
