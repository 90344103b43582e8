package daemon

import (
	"sort"
	"strings"
	"sync"
	"time"

	"triage/internal/types"
)

// Connected repos, their issues, and the session registry are all
// process-local. Durability across restarts is a non-goal; the canonical
// sources of truth (GitHub, the agent service) are re-fetchable.

type repoRecord struct {
	repo types.Repo
	pat  string
}

type RepoStore struct {
	mu    sync.RWMutex
	repos map[string]*repoRecord
	order []string
}

func NewRepoStore() *RepoStore {
	return &RepoStore{repos: map[string]*repoRecord{}}
}

func (s *RepoStore) Add(repo types.Repo, pat string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.repos[repo.ID]; !ok {
		s.order = append(s.order, repo.ID)
	}
	s.repos[repo.ID] = &repoRecord{repo: repo, pat: pat}
}

func (s *RepoStore) Get(id string) (types.Repo, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.repos[id]
	if !ok {
		return types.Repo{}, "", false
	}
	return record.repo, record.pat, true
}

func (s *RepoStore) List() []types.Repo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Repo, 0, len(s.order))
	for _, id := range s.order {
		if record, ok := s.repos[id]; ok {
			out = append(out, record.repo)
		}
	}
	return out
}

func (s *RepoStore) SetOpenIssuesCount(id string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.repos[id]; ok {
		record.repo.OpenIssuesCount = count
	}
}

func (s *RepoStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.repos[id]; !ok {
		return false
	}
	delete(s.repos, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

type IssueStore struct {
	mu     sync.RWMutex
	byRepo map[string][]types.Issue
	byID   map[int64]string // issue id -> repo id
}

func NewIssueStore() *IssueStore {
	return &IssueStore{
		byRepo: map[string][]types.Issue{},
		byID:   map[int64]string{},
	}
}

// Replace swaps a repo's issue cache wholesale (connect and resync both
// rebuild from scratch). Issues are held newest first.
func (s *IssueStore) Replace(repoID string, issues []types.Issue) {
	sorted := make([]types.Issue, len(issues))
	copy(sorted, issues)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, repo := range s.byID {
		if repo == repoID {
			delete(s.byID, id)
		}
	}
	s.byRepo[repoID] = sorted
	for _, issue := range sorted {
		s.byID[issue.ID] = repoID
	}
}

func (s *IssueStore) Delete(repoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, repo := range s.byID {
		if repo == repoID {
			delete(s.byID, id)
		}
	}
	delete(s.byRepo, repoID)
}

func (s *IssueStore) Has(repoID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byRepo[repoID]
	return ok
}

func (s *IssueStore) Find(issueID int64) (types.Issue, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	repoID, ok := s.byID[issueID]
	if !ok {
		return types.Issue{}, "", false
	}
	for _, issue := range s.byRepo[repoID] {
		if issue.ID == issueID {
			return issue, repoID, true
		}
	}
	return types.Issue{}, "", false
}

type IssueQuery struct {
	Q        string
	Label    string
	Page     int
	PageSize int
}

const (
	defaultPageSize  = 20
	maxDisplayLabels = 3
)

// Query filters, paginates, and trims the cached issues of one repo.
// Label lists are capped at three entries for display.
func (s *IssueStore) Query(repoID string, query IssueQuery) ([]types.Issue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	issues, ok := s.byRepo[repoID]
	if !ok {
		return nil, false
	}

	filtered := make([]types.Issue, 0, len(issues))
	needle := strings.ToLower(strings.TrimSpace(query.Q))
	for _, issue := range issues {
		if needle != "" && !strings.Contains(strings.ToLower(issue.Title), needle) {
			continue
		}
		if query.Label != "" && !containsLabel(issue.Labels, query.Label) {
			continue
		}
		filtered = append(filtered, issue)
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	start := (page - 1) * pageSize
	if start >= len(filtered) {
		return []types.Issue{}, true
	}
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}

	out := make([]types.Issue, 0, end-start)
	for _, issue := range filtered[start:end] {
		if len(issue.Labels) > maxDisplayLabels {
			issue.Labels = issue.Labels[:maxDisplayLabels]
		}
		out = append(out, issue)
	}
	return out, true
}

func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

type sessionRecord struct {
	session types.ActiveSession
}

// SessionRegistry mirrors the sessions this daemon has started. It
// enforces the one-active-session-per-issue invariant and serves the
// active listing the poller consumes.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*sessionRecord
	byIssue  map[int64]string
	now      func() time.Time
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: map[string]*sessionRecord{},
		byIssue:  map[int64]string{},
		now:      time.Now,
	}
}

func (r *SessionRegistry) Add(session types.ActiveSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session.CreatedAt = r.now()
	session.LastAccessed = session.CreatedAt
	r.sessions[session.SessionID] = &sessionRecord{session: session}
	r.byIssue[session.IssueID] = session.SessionID
}

func (r *SessionRegistry) Get(sessionID string) (types.ActiveSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.sessions[sessionID]
	if !ok {
		return types.ActiveSession{}, false
	}
	return record.session, true
}

// ActiveForIssue returns the issue's session only while it is still
// live; a terminal session frees the issue for a new scope.
func (r *SessionRegistry) ActiveForIssue(issueID int64) (types.ActiveSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byIssue[issueID]
	if !ok {
		return types.ActiveSession{}, false
	}
	record, ok := r.sessions[id]
	if !ok || record.session.Status.Terminal() {
		return types.ActiveSession{}, false
	}
	return record.session, true
}

func (r *SessionRegistry) UpdateStatus(sessionID string, status types.SessionStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record, ok := r.sessions[sessionID]; ok {
		record.session.Status = status
		record.session.LastAccessed = r.now()
	}
}

func (r *SessionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	delete(r.sessions, sessionID)
	if r.byIssue[record.session.IssueID] == sessionID {
		delete(r.byIssue, record.session.IssueID)
	}
}

func (r *SessionRegistry) RemoveByRepo(repoID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, record := range r.sessions {
		if record.session.RepoID != repoID {
			continue
		}
		delete(r.sessions, id)
		if r.byIssue[record.session.IssueID] == id {
			delete(r.byIssue, record.session.IssueID)
		}
	}
}

// Active lists the non-terminal sessions, newest first.
func (r *SessionRegistry) Active() []types.ActiveSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ActiveSession, 0, len(r.sessions))
	for _, record := range r.sessions {
		if record.session.Status.Terminal() {
			continue
		}
		out = append(out, record.session)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
