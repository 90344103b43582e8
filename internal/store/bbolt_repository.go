package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"triage/internal/types"
)

var (
	bucketIssueUpdates = []byte("issue_updates")
	bucketAppState     = []byte("app_state")
	keyAppState        = []byte("state")
)

type bboltRepository struct {
	db       *bolt.DB
	updates  *bboltIssueUpdateStore
	appState *bboltAppStateStore
}

func NewBboltRepository(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketIssueUpdates); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketAppState)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltRepository{
		db:       db,
		updates:  &bboltIssueUpdateStore{db: db},
		appState: &bboltAppStateStore{db: db},
	}, nil
}

func (r *bboltRepository) IssueUpdates() IssueUpdateStore { return r.updates }
func (r *bboltRepository) AppState() AppStateStore        { return r.appState }
func (r *bboltRepository) Backend() string                { return RepositoryBackendBbolt }
func (r *bboltRepository) Close() error                   { return r.db.Close() }

type bboltIssueUpdateStore struct {
	db *bolt.DB
}

func (s *bboltIssueUpdateStore) All(ctx context.Context) (map[int64]types.IssueUpdate, error) {
	out := map[int64]types.IssueUpdate{}
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketIssueUpdates)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			id, err := strconv.ParseInt(string(k), 10, 64)
			if err != nil {
				return nil
			}
			var update types.IssueUpdate
			if err := json.Unmarshal(v, &update); err != nil {
				return nil
			}
			out[id] = update
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *bboltIssueUpdateStore) Get(ctx context.Context, issueID int64) (types.IssueUpdate, bool, error) {
	var update types.IssueUpdate
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketIssueUpdates)
		if bucket == nil {
			return nil
		}
		raw := bucket.Get(issueUpdateKey(issueID))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &update); err != nil {
			return nil
		}
		found = true
		return nil
	})
	if err != nil {
		return types.IssueUpdate{}, false, err
	}
	return update, found, nil
}

func (s *bboltIssueUpdateStore) Set(ctx context.Context, issueID int64, update types.IssueUpdate) error {
	raw, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketIssueUpdates)
		if err != nil {
			return err
		}
		return bucket.Put(issueUpdateKey(issueID), raw)
	})
}

func (s *bboltIssueUpdateStore) Clear(ctx context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketIssueUpdates); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketIssueUpdates)
		return err
	})
}

func issueUpdateKey(issueID int64) []byte {
	return []byte(strconv.FormatInt(issueID, 10))
}

type bboltAppStateStore struct {
	db *bolt.DB
}

func (s *bboltAppStateStore) Load(ctx context.Context) (*types.AppState, error) {
	state := &types.AppState{}
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketAppState)
		if bucket == nil {
			return nil
		}
		raw := bucket.Get(keyAppState)
		if raw == nil {
			return nil
		}
		// Corrupt state is discarded rather than surfaced; the UI
		// simply starts fresh.
		_ = json.Unmarshal(raw, state)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *bboltAppStateStore) Save(ctx context.Context, state *types.AppState) error {
	if state == nil {
		return errors.New("state is required")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketAppState)
		if err != nil {
			return err
		}
		return bucket.Put(keyAppState, raw)
	})
}
