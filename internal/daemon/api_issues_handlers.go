package daemon

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
)

func parseIssueID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

func (api *API) handleIssueScope(w http.ResponseWriter, r *http.Request, issueID int64) {
	additionalContext, ok := scopeContextFromRequest(r)
	if !ok {
		writeInvalidBody(w)
		return
	}

	result, err := api.Sessions.Scope(r.Context(), issueID, additionalContext)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"sessionId": result.SessionID,
		"url":       result.URL,
	})
}

// scopeContextFromRequest reads the optional additional context from a
// JSON body or a form post. An empty body is fine.
func scopeContextFromRequest(r *http.Request) (string, bool) {
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"),
		strings.HasPrefix(contentType, "application/x-www-form-urlencoded"):
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			if err := r.ParseForm(); err != nil {
				return "", false
			}
		}
		if v := r.FormValue("additionalContext"); v != "" {
			return v, true
		}
		return r.FormValue("additional_context"), true
	default:
		var req ScopeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return "", true
			}
			return "", false
		}
		return req.AdditionalContext, true
	}
}

// handleIssueSession reports the live session for an issue. sessionId
// is the contract field; the full session record rides along for
// clients that want the cached title and status without a second call.
func (api *API) handleIssueSession(w http.ResponseWriter, r *http.Request, issueID int64) {
	session, ok := api.Sessions.SessionForIssue(r.Context(), issueID)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"sessionId": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": session.SessionID,
		"session":   session,
	})
}

func (api *API) handleIssueExecute(w http.ResponseWriter, r *http.Request, issueID int64) {
	var req ExecuteSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeServiceError(w, invalidError("Session ID is required", nil))
		return
	}
	err := api.Sessions.Execute(r.Context(), issueID, req.SessionID, ExecuteParams{
		BranchName:        req.BranchName,
		TargetBranch:      req.TargetBranch,
		Approved:          req.Approved,
		AdditionalContext: req.AdditionalContext,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"sessionId": req.SessionID,
		"message":   "Execution started",
	})
}
