package daemon

import (
	"encoding/json"
	"net/http"

	"triage/internal/types"
)

func (api *API) handleActiveSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	sessions := api.Sessions.Active(r.Context())
	if sessions == nil {
		sessions = []types.ActiveSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (api *API) handleSessionDetail(w http.ResponseWriter, r *http.Request, sessionID string) {
	detail, err := api.Sessions.Detail(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (api *API) handleSessionMessage(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}
	if err := api.Sessions.Message(r.Context(), sessionID, req.Message); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Follow-up sent successfully"})
}

func (api *API) handleSessionCancel(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := api.Sessions.Cancel(r.Context(), sessionID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session cancelled"})
}
