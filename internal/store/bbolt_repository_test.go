package store

import (
	"context"
	"path/filepath"
	"testing"

	"triage/internal/types"
)

func openTestRepository(t *testing.T) Repository {
	t.Helper()
	repo, err := NewBboltRepository(filepath.Join(t.TempDir(), "triage.db"))
	if err != nil {
		t.Fatalf("open bbolt repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestBboltIssueUpdates(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()
	updates := repo.IssueUpdates()

	if err := updates.Set(ctx, 42, types.IssueUpdate{Status: "PR Submitted", PRURL: "https://x/pr/42"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	update, ok, err := updates.Get(ctx, 42)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if update.PRURL != "https://x/pr/42" {
		t.Fatalf("unexpected entry: %+v", update)
	}

	all, err := updates.All(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("all: %v err=%v", all, err)
	}

	if err := updates.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := updates.Get(ctx, 42); ok {
		t.Fatal("expected entry gone after clear")
	}
}

func TestBboltAppStateRoundTrip(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	state := &types.AppState{ActiveRepoID: "r1", SidebarCollapsed: true}
	if err := repo.AppState().Save(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := repo.AppState().Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ActiveRepoID != "r1" || !loaded.SidebarCollapsed {
		t.Fatalf("unexpected state: %+v", loaded)
	}
}

func TestOpenRepositoryBackendSelection(t *testing.T) {
	dir := t.TempDir()
	paths := RepositoryPaths{
		IssueUpdatesPath: filepath.Join(dir, "issue_updates.json"),
		AppStatePath:     filepath.Join(dir, "state.json"),
		DBPath:           filepath.Join(dir, "triage.db"),
	}

	repo, err := OpenRepository(paths, "")
	if err != nil {
		t.Fatalf("open default backend: %v", err)
	}
	if repo.Backend() != RepositoryBackendBbolt {
		t.Fatalf("expected bbolt default, got %q", repo.Backend())
	}
	_ = repo.Close()

	repo, err = OpenRepository(paths, "file")
	if err != nil {
		t.Fatalf("open file backend: %v", err)
	}
	if repo.Backend() != RepositoryBackendFile {
		t.Fatalf("expected file backend, got %q", repo.Backend())
	}
	_ = repo.Close()

	if _, err := OpenRepository(paths, "sqlite"); err == nil {
		t.Fatal("expected error for unsupported backend")
	}
}
