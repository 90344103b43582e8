package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"
)

const commandTimeout = 60 * time.Second

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

func runRepos(args []string) error {
	fs := flag.NewFlagSet("repos", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	repos, err := c.ListRepos(ctx)
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		fmt.Println("no repositories connected")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tREPO\tISSUES\tCONNECTED")
	for _, repo := range repos {
		fmt.Fprintf(writer, "%s\t%s/%s\t%d\t%s\n",
			repo.ID, repo.Owner, repo.Name, repo.OpenIssuesCount,
			repo.ConnectedAt.Format("2006-01-02 15:04"))
	}
	return writer.Flush()
}

func runConnect(args []string) error {
	fs := flag.NewFlagSet("connect", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	pat := fs.String("pat", "", "GitHub Personal Access Token (prompted if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: triage connect <repo-url> [--pat <token>]")
	}
	repoURL := fs.Arg(0)

	token := *pat
	if token == "" {
		var err error
		token, err = promptPAT()
		if err != nil {
			return err
		}
		if token == "" {
			return errors.New("a GitHub PAT is required")
		}
	}
	return connect(repoURL, token)
}

func connect(repoURL, pat string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	resp, err := c.ConnectRepo(ctx, repoURL, pat)
	if err != nil {
		return err
	}
	fmt.Printf("connected %s/%s (%d open issues)\nid: %s\n",
		resp.Repo.Owner, resp.Repo.Name, resp.IssuesCount, resp.ID)
	return nil
}

// promptPAT reads the token without echo so it never lands in shell
// history or scrollback.
func promptPAT() (string, error) {
	fmt.Fprint(os.Stderr, "GitHub PAT: ")
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func runResync(args []string) error {
	fs := flag.NewFlagSet("resync", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: triage resync <repo-id>")
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	resp, err := c.ResyncRepo(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Printf("resynced: %d open issues\n", resp.IssuesCount)
	return nil
}

func runDisconnect(args []string) error {
	fs := flag.NewFlagSet("disconnect", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: triage disconnect <repo-id>")
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	if err := c.DeleteRepo(ctx, fs.Arg(0)); err != nil {
		return err
	}
	fmt.Println("repository disconnected")
	return nil
}
