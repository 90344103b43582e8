package daemon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"triage/internal/devin"
	"triage/internal/github"
	"triage/internal/logging"
	"triage/internal/types"
)

const testToken = "test-token"

func newTestAPIServer(t *testing.T) (*httptest.Server, *fakeGitHub) {
	t.Helper()
	fake := &fakeGitHub{repoBody: repoOKBody}
	fake.issuesBody = issuesBody(t, 2)
	ghServer := httptest.NewServer(fake.handler())
	t.Cleanup(ghServer.Close)

	repos := NewRepoStore()
	issues := NewIssueStore()
	registry := NewSessionRegistry()
	repoSvc := NewRepoService(github.NewClient(ghServer.URL), repos, issues, registry, logging.Nop())
	sessionSvc := NewSessionService(devin.NewSimulator(), repos, issues, registry, false, logging.Nop())

	api := &API{Version: "test", Repos: repoSvc, Sessions: sessionSvc, Logger: logging.Nop()}
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	server := httptest.NewServer(TokenAuthMiddleware(testToken, mux))
	t.Cleanup(server.Close)
	return server, fake
}

func doRequest(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func TestHealthEndpointOpen(t *testing.T) {
	server, _ := newTestAPIServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz without auth = %d", resp.StatusCode)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	server, _ := newTestAPIServer(t)

	resp, err := http.Get(server.URL + "/api/repos")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/repos", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong token = %d, want 401", resp2.StatusCode)
	}
}

func TestConnectListDeleteFlow(t *testing.T) {
	server, _ := newTestAPIServer(t)

	resp, body := doRequest(t, http.MethodPost, server.URL+"/api/repos/connect", ConnectRepoRequest{
		RepoURL:   "https://github.com/octocat/hello",
		GitHubPAT: "pat",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("connect = %d: %s", resp.StatusCode, body)
	}
	var connected struct {
		ID          string `json:"id"`
		IssuesCount int    `json:"issuesCount"`
	}
	if err := json.Unmarshal(body, &connected); err != nil {
		t.Fatal(err)
	}
	if connected.ID == "" || connected.IssuesCount != 2 {
		t.Fatalf("unexpected connect payload: %s", body)
	}

	resp, body = doRequest(t, http.MethodGet, server.URL+"/api/repos", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list = %d", resp.StatusCode)
	}
	var repos []types.Repo
	if err := json.Unmarshal(body, &repos); err != nil {
		t.Fatal(err)
	}
	if len(repos) != 1 || repos[0].ID != connected.ID {
		t.Fatalf("unexpected repo list: %s", body)
	}

	resp, body = doRequest(t, http.MethodGet,
		fmt.Sprintf("%s/api/repos/%s/issues?q=issue", server.URL, connected.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("issues = %d", resp.StatusCode)
	}
	var issues []types.Issue
	if err := json.Unmarshal(body, &issues); err != nil {
		t.Fatal(err)
	}
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %s", body)
	}

	resp, _ = doRequest(t, http.MethodDelete, server.URL+"/api/repos/"+connected.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete = %d", resp.StatusCode)
	}
	resp, _ = doRequest(t, http.MethodDelete, server.URL+"/api/repos/"+connected.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete = %d, want 404", resp.StatusCode)
	}
}

func TestScopeAndSessionFlow(t *testing.T) {
	server, _ := newTestAPIServer(t)

	resp, body := doRequest(t, http.MethodPost, server.URL+"/api/repos/connect", ConnectRepoRequest{
		RepoURL: "https://github.com/octocat/hello", GitHubPAT: "pat",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("connect = %d: %s", resp.StatusCode, body)
	}
	var connected struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &connected); err != nil {
		t.Fatal(err)
	}

	resp, body = doRequest(t, http.MethodGet, server.URL+"/api/repos/"+connected.ID+"/issues", nil)
	var issues []types.Issue
	if err := json.Unmarshal(body, &issues); err != nil {
		t.Fatal(err)
	}
	issueID := issues[0].ID

	resp, body = doRequest(t, http.MethodPost,
		fmt.Sprintf("%s/api/issues/%d/scope", server.URL, issueID),
		ScopeRequest{AdditionalContext: "keep it small"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("scope = %d: %s", resp.StatusCode, body)
	}
	var scoped struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(body, &scoped); err != nil {
		t.Fatal(err)
	}
	if scoped.SessionID == "" {
		t.Fatalf("no session id: %s", body)
	}

	// Double scope of the same issue conflicts.
	resp, _ = doRequest(t, http.MethodPost,
		fmt.Sprintf("%s/api/issues/%d/scope", server.URL, issueID), nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double scope = %d, want 409", resp.StatusCode)
	}

	resp, body = doRequest(t, http.MethodGet,
		fmt.Sprintf("%s/api/issues/%d/session", server.URL, issueID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("issue session = %d", resp.StatusCode)
	}
	var lookup struct {
		SessionID *string              `json:"sessionId"`
		Session   *types.ActiveSession `json:"session"`
	}
	if err := json.Unmarshal(body, &lookup); err != nil {
		t.Fatal(err)
	}
	if lookup.SessionID == nil || *lookup.SessionID != scoped.SessionID {
		t.Fatalf("unexpected session lookup: %s", body)
	}
	if lookup.Session == nil || lookup.Session.SessionID != scoped.SessionID {
		t.Fatalf("unexpected session record: %s", body)
	}

	resp, body = doRequest(t, http.MethodGet,
		server.URL+"/api/devin/"+scoped.SessionID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session detail = %d", resp.StatusCode)
	}
	var detail types.SessionDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		t.Fatal(err)
	}
	if detail.Status != types.SessionStatusInitializing {
		t.Fatalf("first detail status = %s", detail.Status)
	}

	resp, _ = doRequest(t, http.MethodPost,
		server.URL+"/api/devin/"+scoped.SessionID+"/message",
		MessageRequest{Message: "focus on error handling"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("message = %d", resp.StatusCode)
	}

	resp, body = doRequest(t, http.MethodPost,
		fmt.Sprintf("%s/api/issues/%d/execute", server.URL, issueID),
		ExecuteSessionRequest{
			SessionID:    scoped.SessionID,
			BranchName:   "feat/fix",
			TargetBranch: "main",
			Approved:     true,
		})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("execute = %d: %s", resp.StatusCode, body)
	}
	var executed struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(body, &executed); err != nil {
		t.Fatal(err)
	}
	if executed.SessionID != scoped.SessionID {
		t.Fatalf("execute response session = %q, want %q", executed.SessionID, scoped.SessionID)
	}

	resp, body = doRequest(t, http.MethodGet, server.URL+"/api/sessions/active", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("active = %d", resp.StatusCode)
	}
	var active []types.ActiveSession
	if err := json.Unmarshal(body, &active); err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].Status != types.SessionStatusRunning {
		t.Fatalf("unexpected active list: %s", body)
	}

	resp, _ = doRequest(t, http.MethodDelete,
		server.URL+"/api/sessions/"+scoped.SessionID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel = %d", resp.StatusCode)
	}

	resp, body = doRequest(t, http.MethodGet, server.URL+"/api/sessions/active", nil)
	var afterCancel []types.ActiveSession
	if err := json.Unmarshal(body, &afterCancel); err != nil {
		t.Fatal(err)
	}
	if len(afterCancel) != 0 {
		t.Fatalf("cancelled session still active: %s", body)
	}
}

func TestExecuteWithoutSessionID(t *testing.T) {
	server, _ := newTestAPIServer(t)

	resp, body := doRequest(t, http.MethodPost, server.URL+"/api/issues/1/execute",
		ExecuteSessionRequest{BranchName: "feat/x", TargetBranch: "main", Approved: true})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("execute without session = %d: %s", resp.StatusCode, body)
	}
}

func TestExecuteUnderWrongIssue(t *testing.T) {
	server, _ := newTestAPIServer(t)

	resp, body := doRequest(t, http.MethodPost, server.URL+"/api/repos/connect", ConnectRepoRequest{
		RepoURL: "https://github.com/octocat/hello", GitHubPAT: "pat",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("connect = %d: %s", resp.StatusCode, body)
	}
	var connected struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &connected); err != nil {
		t.Fatal(err)
	}
	_, body = doRequest(t, http.MethodGet, server.URL+"/api/repos/"+connected.ID+"/issues", nil)
	var issues []types.Issue
	if err := json.Unmarshal(body, &issues); err != nil {
		t.Fatal(err)
	}

	resp, body = doRequest(t, http.MethodPost,
		fmt.Sprintf("%s/api/issues/%d/scope", server.URL, issues[0].ID), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("scope = %d: %s", resp.StatusCode, body)
	}
	var scoped struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(body, &scoped); err != nil {
		t.Fatal(err)
	}

	// Executing under a different issue than the one the session was
	// scoped on is rejected.
	resp, body = doRequest(t, http.MethodPost,
		fmt.Sprintf("%s/api/issues/%d/execute", server.URL, issues[1].ID),
		ExecuteSessionRequest{
			SessionID:    scoped.SessionID,
			BranchName:   "feat/fix",
			TargetBranch: "main",
			Approved:     true,
		})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("mismatched execute = %d: %s", resp.StatusCode, body)
	}
}

func TestSessionForIssueWithoutSession(t *testing.T) {
	server, _ := newTestAPIServer(t)

	resp, body := doRequest(t, http.MethodGet, server.URL+"/api/issues/42/session", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("issue session = %d", resp.StatusCode)
	}
	var lookup struct {
		SessionID *string `json:"sessionId"`
	}
	if err := json.Unmarshal(body, &lookup); err != nil {
		t.Fatal(err)
	}
	if lookup.SessionID != nil {
		t.Fatalf("expected null sessionId, got %s", body)
	}
}

func TestUnknownRoutes(t *testing.T) {
	server, _ := newTestAPIServer(t)

	resp, _ := doRequest(t, http.MethodGet, server.URL+"/api/issues/not-a-number/scope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("bad issue id = %d, want 404", resp.StatusCode)
	}

	resp, _ = doRequest(t, http.MethodPut, server.URL+"/api/repos", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("bad method = %d, want 405", resp.StatusCode)
	}
}
