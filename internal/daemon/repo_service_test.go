package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"triage/internal/github"
	"triage/internal/logging"
)

type fakeGitHub struct {
	repoStatus   int
	repoBody     string
	issuesStatus int
	issuesBody   string

	lastPAT string
}

func (f *fakeGitHub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/", func(w http.ResponseWriter, r *http.Request) {
		f.lastPAT = strings.TrimPrefix(r.Header.Get("Authorization"), "token ")
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/issues") {
			status := f.issuesStatus
			if status == 0 {
				status = http.StatusOK
			}
			w.WriteHeader(status)
			w.Write([]byte(f.issuesBody))
			return
		}
		status := f.repoStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		w.Write([]byte(f.repoBody))
	})
	return mux
}

func newTestRepoService(t *testing.T, fake *fakeGitHub) (*RepoService, *RepoStore, *IssueStore, *SessionRegistry) {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	repos := NewRepoStore()
	issues := NewIssueStore()
	registry := NewSessionRegistry()
	svc := NewRepoService(github.NewClient(server.URL), repos, issues, registry, logging.Nop())
	svc.newID = func() string { return "repo-1" }
	return svc, repos, issues, registry
}

const repoOKBody = `{
	"full_name": "octocat/hello",
	"html_url": "https://github.com/octocat/hello",
	"permissions": {"admin": false, "push": true, "pull": true}
}`

func issuesBody(t *testing.T, count int) string {
	t.Helper()
	issues := make([]map[string]any, 0, count)
	for i := 1; i <= count; i++ {
		issues = append(issues, map[string]any{
			"id":         100 + i,
			"number":     i,
			"title":      "issue " + strings.Repeat("x", i),
			"body":       "body",
			"labels":     []map[string]string{{"name": "bug"}},
			"user":       map[string]string{"login": "octocat"},
			"created_at": time.Now().Add(-time.Duration(i) * 48 * time.Hour).Format(time.RFC3339),
		})
	}
	data, err := json.Marshal(issues)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestConnectSuccess(t *testing.T) {
	fake := &fakeGitHub{repoBody: repoOKBody}
	fake.issuesBody = issuesBody(t, 3)
	svc, repos, issues, _ := newTestRepoService(t, fake)

	result, err := svc.Connect(context.Background(), "https://github.com/octocat/hello", "pat-value")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if result.Repo.Owner != "octocat" || result.Repo.Name != "hello" {
		t.Fatalf("unexpected repo identity: %+v", result.Repo)
	}
	if result.IssuesCount != 3 {
		t.Fatalf("expected 3 issues, got %d", result.IssuesCount)
	}
	if fake.lastPAT != "pat-value" {
		t.Fatalf("PAT not forwarded, got %q", fake.lastPAT)
	}
	if _, pat, ok := repos.Get(result.Repo.ID); !ok || pat != "pat-value" {
		t.Fatal("repo not stored with its PAT")
	}
	if !issues.Has(result.Repo.ID) {
		t.Fatal("issues not cached")
	}
}

func TestConnectValidation(t *testing.T) {
	svc, _, _, _ := newTestRepoService(t, &fakeGitHub{})

	cases := []struct {
		name    string
		url     string
		pat     string
		message string
	}{
		{"missing url", "", "pat", "Repository URL is required"},
		{"missing pat", "https://github.com/a/b", "", "GitHub Personal Access Token is required"},
		{"bad url", "https://example.com/not-a-repo", "pat", "Invalid GitHub repository URL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Connect(context.Background(), tc.url, tc.pat)
			svcErr, ok := err.(*ServiceError)
			if !ok || svcErr.Kind != ServiceErrorInvalid {
				t.Fatalf("expected invalid error, got %v", err)
			}
			if !strings.Contains(svcErr.Message, tc.message) {
				t.Fatalf("message %q does not contain %q", svcErr.Message, tc.message)
			}
		})
	}
}

func TestConnectGitHubErrors(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		wantKind ServiceErrorKind
		wantMsg  string
	}{
		{"bad token", http.StatusUnauthorized, `{"message":"Bad credentials"}`,
			ServiceErrorInvalid, "Invalid GitHub Personal Access Token"},
		{"rate limited", http.StatusForbidden, `{"message":"API rate limit exceeded"}`,
			ServiceErrorUnavailable, "rate limit"},
		{"forbidden", http.StatusForbidden, `{"message":"Resource not accessible"}`,
			ServiceErrorInvalid, "insufficient permissions"},
		{"not found", http.StatusNotFound, `{"message":"Not Found"}`,
			ServiceErrorNotFound, "not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeGitHub{repoStatus: tc.status, repoBody: tc.body}
			svc, _, _, _ := newTestRepoService(t, fake)

			_, err := svc.Connect(context.Background(), "https://github.com/octocat/hello", "pat")
			svcErr, ok := err.(*ServiceError)
			if !ok {
				t.Fatalf("expected service error, got %v", err)
			}
			if svcErr.Kind != tc.wantKind {
				t.Fatalf("kind = %s, want %s", svcErr.Kind, tc.wantKind)
			}
			if !strings.Contains(strings.ToLower(svcErr.Message), strings.ToLower(tc.wantMsg)) {
				t.Fatalf("message %q does not contain %q", svcErr.Message, tc.wantMsg)
			}
			if strings.Contains(svcErr.Error(), "pat") && strings.Contains(svcErr.Error(), "token pat") {
				t.Fatalf("PAT leaked into error: %q", svcErr.Error())
			}
		})
	}
}

func TestConnectRequiresPushAccess(t *testing.T) {
	fake := &fakeGitHub{repoBody: `{
		"full_name": "octocat/hello",
		"html_url": "https://github.com/octocat/hello",
		"permissions": {"admin": false, "push": false, "pull": true}
	}`}
	svc, _, _, _ := newTestRepoService(t, fake)

	_, err := svc.Connect(context.Background(), "https://github.com/octocat/hello", "pat")
	svcErr, ok := err.(*ServiceError)
	if !ok || svcErr.Kind != ServiceErrorInvalid {
		t.Fatalf("expected invalid error, got %v", err)
	}
	if !strings.Contains(svcErr.Message, "Push access") {
		t.Fatalf("unexpected message %q", svcErr.Message)
	}
}

func TestConnectMissingPermissionsBlock(t *testing.T) {
	fake := &fakeGitHub{repoBody: `{"full_name": "octocat/hello", "html_url": ""}`}
	svc, _, _, _ := newTestRepoService(t, fake)

	_, err := svc.Connect(context.Background(), "https://github.com/octocat/hello", "pat")
	svcErr, ok := err.(*ServiceError)
	if !ok || svcErr.Kind != ServiceErrorInvalid {
		t.Fatalf("expected invalid error, got %v", err)
	}
	if !strings.Contains(svcErr.Message, "'repo' scope") {
		t.Fatalf("unexpected message %q", svcErr.Message)
	}
}

func TestResync(t *testing.T) {
	fake := &fakeGitHub{repoBody: repoOKBody}
	fake.issuesBody = issuesBody(t, 2)
	svc, repos, _, _ := newTestRepoService(t, fake)

	result, err := svc.Connect(context.Background(), "https://github.com/octocat/hello", "pat")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	fake.issuesBody = issuesBody(t, 5)
	resync, err := svc.Resync(context.Background(), result.Repo.ID)
	if err != nil {
		t.Fatalf("Resync: %v", err)
	}
	if resync.IssuesCount != 5 {
		t.Fatalf("expected 5 issues after resync, got %d", resync.IssuesCount)
	}
	repo, _, _ := repos.Get(result.Repo.ID)
	if repo.OpenIssuesCount != 5 {
		t.Fatalf("open issue count not refreshed: %d", repo.OpenIssuesCount)
	}
}

func TestResyncExpiredToken(t *testing.T) {
	fake := &fakeGitHub{repoBody: repoOKBody}
	fake.issuesBody = issuesBody(t, 1)
	svc, _, _, _ := newTestRepoService(t, fake)

	result, err := svc.Connect(context.Background(), "https://github.com/octocat/hello", "pat")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	fake.issuesStatus = http.StatusUnauthorized
	fake.issuesBody = `{"message":"Bad credentials"}`
	_, err = svc.Resync(context.Background(), result.Repo.ID)
	svcErr, ok := err.(*ServiceError)
	if !ok || svcErr.Kind != ServiceErrorInvalid {
		t.Fatalf("expected invalid error, got %v", err)
	}
	if !strings.Contains(svcErr.Message, "expired or been revoked") {
		t.Fatalf("unexpected message %q", svcErr.Message)
	}
}

func TestDeleteRepoDropsIssuesAndSessions(t *testing.T) {
	fake := &fakeGitHub{repoBody: repoOKBody}
	fake.issuesBody = issuesBody(t, 1)
	svc, _, issues, registry := newTestRepoService(t, fake)

	result, err := svc.Connect(context.Background(), "https://github.com/octocat/hello", "pat")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := svc.Delete(context.Background(), result.Repo.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if issues.Has(result.Repo.ID) {
		t.Fatal("issues not dropped with repo")
	}
	if len(registry.Active()) != 0 {
		t.Fatal("sessions not dropped with repo")
	}
	if err := svc.Delete(context.Background(), result.Repo.ID); err == nil {
		t.Fatal("second delete should fail")
	}
}

func TestIssueQueryFilters(t *testing.T) {
	fake := &fakeGitHub{repoBody: repoOKBody, issuesBody: `[
		{"id": 1, "number": 1, "title": "Fix login crash", "labels": [{"name": "bug"}],
		 "user": {"login": "a"}, "created_at": "2026-08-01T00:00:00Z"},
		{"id": 2, "number": 2, "title": "Add dark mode", "labels": [{"name": "feature"}],
		 "user": {"login": "b"}, "created_at": "2026-08-10T00:00:00Z"},
		{"id": 3, "number": 3, "title": "Login page styling", "labels": [{"name": "bug"}, {"name": "ui"}],
		 "user": {"login": "c"}, "created_at": "2026-08-05T00:00:00Z"},
		{"id": 4, "number": 4, "title": "Not really an issue", "pull_request": {},
		 "user": {"login": "d"}, "created_at": "2026-08-20T00:00:00Z"}
	]`}
	svc, _, _, _ := newTestRepoService(t, fake)

	result, err := svc.Connect(context.Background(), "https://github.com/octocat/hello", "pat")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if result.IssuesCount != 3 {
		t.Fatalf("pull requests should be excluded, got %d issues", result.IssuesCount)
	}

	all, err := svc.Issues(context.Background(), result.Repo.ID, IssueQuery{})
	if err != nil {
		t.Fatalf("Issues: %v", err)
	}
	if len(all) != 3 || all[0].ID != 2 {
		t.Fatalf("expected newest-first ordering, got %+v", all)
	}

	byTitle, _ := svc.Issues(context.Background(), result.Repo.ID, IssueQuery{Q: "login"})
	if len(byTitle) != 2 {
		t.Fatalf("title search returned %d issues", len(byTitle))
	}

	byLabel, _ := svc.Issues(context.Background(), result.Repo.ID, IssueQuery{Label: "bug"})
	if len(byLabel) != 2 {
		t.Fatalf("label filter returned %d issues", len(byLabel))
	}

	paged, _ := svc.Issues(context.Background(), result.Repo.ID, IssueQuery{Page: 2, PageSize: 2})
	if len(paged) != 1 || paged[0].ID != 1 {
		t.Fatalf("pagination returned %+v", paged)
	}

	if _, err := svc.Issues(context.Background(), "missing", IssueQuery{}); err == nil {
		t.Fatal("unknown repo should error")
	}
}

func TestParseRepoURL(t *testing.T) {
	cases := []struct {
		in          string
		owner, name string
		wantErr     bool
	}{
		{"https://github.com/octocat/hello", "octocat", "hello", false},
		{"https://github.com/octocat/hello/", "octocat", "hello", false},
		{"https://github.com/octocat/hello.git", "octocat", "hello", false},
		{"http://www.github.com/octocat/hello", "octocat", "hello", false},
		{"octocat/hello", "octocat", "hello", false},
		{"https://github.com/octocat", "", "", true},
		{"https://github.com/a/b/c", "", "", true},
	}
	for _, tc := range cases {
		owner, name, err := parseRepoURL(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseRepoURL(%q) should fail", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseRepoURL(%q): %v", tc.in, err)
			continue
		}
		if owner != tc.owner || name != tc.name {
			t.Errorf("parseRepoURL(%q) = %s/%s", tc.in, owner, name)
		}
	}
}
