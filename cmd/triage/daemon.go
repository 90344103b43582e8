package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"triage/internal/config"
	"triage/internal/daemon"
	"triage/internal/devin"
	"triage/internal/github"
	"triage/internal/logging"
)

func runDaemonCommand(args []string) error {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	kill := fs.Bool("kill", false, "stop any running daemon and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *kill {
		return killDaemon()
	}
	return runDaemon()
}

func runDaemon() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dataDir, err := config.DataDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return err
	}

	tokenPath, err := config.TokenPath()
	if err != nil {
		return err
	}
	token, err := daemon.LoadOrCreateToken(tokenPath)
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel()))

	// A configured API key selects the hosted Devin API; without one the
	// deterministic simulator serves the whole session lifecycle.
	var agent devin.Service
	if key := cfg.DevinAPIKey(); key != "" {
		agent = devin.NewClient(cfg.DevinBaseURL(), key)
		logger.Info("agent_backend", logging.F("backend", "devin"))
	} else {
		agent = devin.NewSimulator()
		logger.Info("agent_backend", logging.F("backend", "simulator"))
	}

	repos := daemon.NewRepoStore()
	issues := daemon.NewIssueStore()
	registry := daemon.NewSessionRegistry()

	gh := github.NewClient(cfg.GitHubBaseURL())
	repoSvc := daemon.NewRepoService(gh, repos, issues, registry, logger)
	sessionSvc := daemon.NewSessionService(agent, repos, issues, registry,
		cfg.Execute.AutoApproveHighConfidence, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := daemon.New(cfg.DaemonAddress(), token, buildVersion(), repoSvc, sessionSvc, logger)
	return d.Run(ctx)
}
