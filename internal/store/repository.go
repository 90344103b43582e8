package store

import (
	"errors"
	"strings"
)

const (
	RepositoryBackendFile  = "file"
	RepositoryBackendBbolt = "bbolt"
)

// Repository bundles the durable client-side stores behind one handle so
// the UI owns a single lifecycle regardless of backend.
type Repository interface {
	IssueUpdates() IssueUpdateStore
	AppState() AppStateStore
	Backend() string
	Close() error
}

type RepositoryPaths struct {
	IssueUpdatesPath string
	AppStatePath     string
	DBPath           string
}

type fileRepository struct {
	updates  *FileIssueUpdateStore
	appState *FileAppStateStore
}

func NewFileRepository(paths RepositoryPaths) Repository {
	return &fileRepository{
		updates:  NewFileIssueUpdateStore(paths.IssueUpdatesPath),
		appState: NewFileAppStateStore(paths.AppStatePath),
	}
}

func (r *fileRepository) IssueUpdates() IssueUpdateStore { return r.updates }
func (r *fileRepository) AppState() AppStateStore        { return r.appState }
func (r *fileRepository) Backend() string                { return RepositoryBackendFile }
func (r *fileRepository) Close() error                   { return nil }

func OpenRepository(paths RepositoryPaths, backend string) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", RepositoryBackendBbolt:
		if strings.TrimSpace(paths.DBPath) == "" {
			return nil, errors.New("db path is required for bbolt repository")
		}
		return NewBboltRepository(paths.DBPath)
	case RepositoryBackendFile:
		return NewFileRepository(paths), nil
	default:
		return nil, errors.New("unsupported repository backend: " + backend)
	}
}
