package store

import (
	"context"
	"strconv"
	"sync"

	"triage/internal/types"
)

// IssueUpdateStore remembers, per issue, the last user-visible terminal
// outcome (e.g. that a PR was opened). Entries are never deleted
// automatically; Clear is the only reset.
type IssueUpdateStore interface {
	All(ctx context.Context) (map[int64]types.IssueUpdate, error)
	Get(ctx context.Context, issueID int64) (types.IssueUpdate, bool, error)
	Set(ctx context.Context, issueID int64, update types.IssueUpdate) error
	Clear(ctx context.Context) error
}

// FileIssueUpdateStore persists the map as a single JSON object keyed by
// decimal issue id. Restore is best-effort: a missing or corrupt file
// yields an empty map and never an error.
type FileIssueUpdateStore struct {
	path string
	mu   sync.Mutex
}

func NewFileIssueUpdateStore(path string) *FileIssueUpdateStore {
	return &FileIssueUpdateStore{path: path}
}

func (s *FileIssueUpdateStore) All(ctx context.Context) (map[int64]types.IssueUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(), nil
}

func (s *FileIssueUpdateStore) Get(ctx context.Context, issueID int64) (types.IssueUpdate, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update, ok := s.load()[issueID]
	return update, ok, nil
}

func (s *FileIssueUpdateStore) Set(ctx context.Context, issueID int64, update types.IssueUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	updates := s.load()
	updates[issueID] = update
	return s.save(updates)
}

func (s *FileIssueUpdateStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(map[int64]types.IssueUpdate{})
}

func (s *FileIssueUpdateStore) load() map[int64]types.IssueUpdate {
	raw := map[string]types.IssueUpdate{}
	if err := readJSON(s.path, &raw); err != nil {
		return map[int64]types.IssueUpdate{}
	}
	out := make(map[int64]types.IssueUpdate, len(raw))
	for key, update := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		out[id] = update
	}
	return out
}

func (s *FileIssueUpdateStore) save(updates map[int64]types.IssueUpdate) error {
	raw := make(map[string]types.IssueUpdate, len(updates))
	for id, update := range updates {
		raw[strconv.FormatInt(id, 10)] = update
	}
	return writeJSONAtomic(s.path, raw)
}
