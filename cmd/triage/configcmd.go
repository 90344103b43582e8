package main

import (
	"flag"
	"fmt"
	"os"

	"triage/internal/config"
)

func runConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}

	fmt.Printf("config file:    %s\n", path)
	fmt.Printf("daemon address: %s\n", cfg.DaemonAddress())
	fmt.Printf("github api:     %s\n", cfg.GitHubBaseURL())
	fmt.Printf("agent backend:  %s\n", agentBackendLabel(cfg))
	fmt.Printf("poll interval:  %s\n", cfg.PollInterval())
	fmt.Printf("target branch:  %s\n", cfg.DefaultTargetBranch())
	fmt.Printf("log level:      %s\n", cfg.LogLevel())
	fmt.Printf("storage:        %s\n", cfg.StorageBackend())
	return nil
}

// agentBackendLabel reports which backend the daemon would choose; the
// API key itself is never printed.
func agentBackendLabel(cfg config.Config) string {
	if cfg.DevinAPIKey() != "" {
		return "devin (api key configured)"
	}
	return "simulator (no api key)"
}
