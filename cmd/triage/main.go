package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	triageclient "triage/internal/client"
)

const usageText = `triage connects GitHub repositories and delegates issues to a coding agent.

Usage:
  triage <command> [flags]

Commands:
  daemon     run the background daemon
  ui         run the terminal UI
  repos      list connected repositories
  connect    connect a repository
  resync     re-fetch a repository's open issues
  disconnect disconnect a repository
  issues     list a repository's open issues
  scope      start a scoping session for an issue
  send       send a follow-up message into a session
  execute    approve a plan and start implementation
  ps         list active sessions
  cancel     cancel a session
  config     print the effective configuration
  help       show help

Flags:
  -h, --help   show help

Daemon flags:
  --kill       stop any running daemon and exit

Examples:
  triage connect https://github.com/owner/repo
  triage issues <repo-id> --label bug
  triage scope <issue-id> --context "prefer a minimal fix"
  triage execute <issue-id> --branch feat/x --target main
`

const version = "dev"

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	case "daemon":
		exitOnErr("daemon", runDaemonCommand(args[1:]))
	case "ui":
		exitOnErr("ui", runUI(args[1:]))
	case "repos":
		exitOnErr("repos", runRepos(args[1:]))
	case "connect":
		exitOnErr("connect", runConnect(args[1:]))
	case "resync":
		exitOnErr("resync", runResync(args[1:]))
	case "disconnect":
		exitOnErr("disconnect", runDisconnect(args[1:]))
	case "issues":
		exitOnErr("issues", runIssues(args[1:]))
	case "scope":
		exitOnErr("scope", runScope(args[1:]))
	case "send":
		exitOnErr("send", runSend(args[1:]))
	case "execute":
		exitOnErr("execute", runExecute(args[1:]))
	case "ps":
		exitOnErr("ps", runPS(args[1:]))
	case "cancel":
		exitOnErr("cancel", runCancel(args[1:]))
	case "config":
		exitOnErr("config", runConfig(args[1:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func exitOnErr(command string, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
	os.Exit(1)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}

func newClient() (*triageclient.Client, error) {
	return triageclient.New()
}

func killDaemon() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.Shutdown(ctx); err == nil {
		return nil
	} else {
		var apiErr *triageclient.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil
		}
		if isDaemonUnavailable(err) {
			return nil
		}
		return err
	}
}

func isDaemonUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "connection refused")
}
