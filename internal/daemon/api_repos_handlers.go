package daemon

import (
	"encoding/json"
	"net/http"
	"strconv"

	"triage/internal/types"
)

func (api *API) handleRepoConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req ConnectRepoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := api.Repos.Connect(r.Context(), req.RepoURL, req.GitHubPAT)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          result.Repo.ID,
		"repo":        result.Repo,
		"issuesCount": result.IssuesCount,
		"message":     "Repository connected successfully",
	})
}

func (api *API) handleRepoList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	repos := api.Repos.List(r.Context())
	if repos == nil {
		repos = []types.Repo{}
	}
	writeJSON(w, http.StatusOK, repos)
}

func (api *API) handleRepoDelete(w http.ResponseWriter, r *http.Request, repoID string) {
	if err := api.Repos.Delete(r.Context(), repoID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Repository disconnected"})
}

func (api *API) handleRepoResync(w http.ResponseWriter, r *http.Request, repoID string) {
	result, err := api.Repos.Resync(r.Context(), repoID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Issues resynced successfully",
		"issuesCount": result.IssuesCount,
	})
}

func (api *API) handleRepoIssues(w http.ResponseWriter, r *http.Request, repoID string) {
	q := r.URL.Query()
	query := IssueQuery{
		Q:        q.Get("q"),
		Label:    q.Get("label"),
		Page:     atoiDefault(q.Get("page"), 1),
		PageSize: atoiDefault(q.Get("pageSize"), defaultPageSize),
	}
	issues, err := api.Repos.Issues(r.Context(), repoID, query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issues)
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
