package main

import (
	"context"
	"flag"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"triage/internal/app"
	"triage/internal/config"
	"triage/internal/logging"
	"triage/internal/poller"
	"triage/internal/store"
)

func runUI(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}

	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	model := app.NewModel(app.Options{
		API:           c,
		States:        repo.AppState(),
		Updates:       repo.IssueUpdates(),
		DefaultTarget: cfg.DefaultTargetBranch(),
	})
	program := tea.NewProgram(model, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The poller owns its background loop; the UI only consumes the
	// updates it pushes through Program.Send.
	p := poller.New(c, repo.IssueUpdates(), logging.Nop(), poller.Options{
		Interval: cfg.PollInterval(),
		Sink: func(update poller.Update) {
			program.Send(app.SessionUpdate(update))
		},
	})
	p.Start(ctx)

	_, err = program.Run()
	return err
}

func openRepository(cfg config.Config) (store.Repository, error) {
	statePath, err := config.StatePath()
	if err != nil {
		return nil, err
	}
	updatesPath, err := config.IssueUpdatesPath()
	if err != nil {
		return nil, err
	}
	dbPath, err := config.DBPath()
	if err != nil {
		return nil, err
	}
	dataDir, err := config.DataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, err
	}
	return store.OpenRepository(store.RepositoryPaths{
		AppStatePath:     statePath,
		IssueUpdatesPath: updatesPath,
		DBPath:           dbPath,
	}, cfg.StorageBackend())
}
