package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	triageclient "triage/internal/client"
	"triage/internal/session"
)

func runScope(args []string) error {
	fs := flag.NewFlagSet("scope", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	additional := fs.String("context", "", "additional context for the agent")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: triage scope <issue-id> [--context <text>]")
	}
	issueID, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid issue id %q", fs.Arg(0))
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	resp, err := c.ScopeIssue(ctx, issueID, *additional)
	if err != nil {
		return err
	}
	fmt.Printf("session: %s\n", resp.SessionID)
	if resp.URL != "" {
		fmt.Printf("url: %s\n", resp.URL)
	}
	return nil
}

func runSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return errors.New("usage: triage send <session-id> <message>")
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	message := strings.Join(fs.Args()[1:], " ")
	if err := c.SendMessage(ctx, fs.Arg(0), message); err != nil {
		return err
	}
	fmt.Println("follow-up sent")
	return nil
}

func runExecute(args []string) error {
	fs := flag.NewFlagSet("execute", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	branch := fs.String("branch", "", "branch to implement on")
	target := fs.String("target", "main", "target branch for the pull request")
	additional := fs.String("context", "", "additional execution context")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: triage execute <issue-id> --branch <name> [--target <name>]")
	}
	issueID, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid issue id %q", fs.Arg(0))
	}
	if *branch == "" {
		return errors.New("--branch is required")
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	sess, err := c.SessionForIssue(ctx, issueID)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("issue %d has no active session; scope it first", issueID)
	}

	resp, err := c.Execute(ctx, issueID, triageclient.ExecuteRequest{
		SessionID:         sess.SessionID,
		BranchName:        *branch,
		TargetBranch:      *target,
		Approved:          true,
		AdditionalContext: *additional,
	})
	if err != nil {
		return err
	}
	fmt.Printf("execution started on %s (session %s)\n", *branch, resp.SessionID)
	return nil
}

func runPS(args []string) error {
	fs := flag.NewFlagSet("ps", flag.ContinueOnError)
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

	sessions, err := c.ListActiveSessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no active sessions")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "SESSION\tSTATUS\tREPO\tISSUE")
	for _, sess := range sessions {
		detail, err := c.GetSession(ctx, sess.SessionID)
		display := session.DisplayNotScoped
		if err == nil {
			display = session.MapDisplayStatus(detail)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			sess.SessionID, display.Label(), sess.RepoName, sess.IssueTitle)
	}
	return writer.Flush()
}

func runCancel(args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: triage cancel <session-id>")
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	if err := c.CancelSession(ctx, fs.Arg(0)); err != nil {
		return err
	}
	fmt.Println("session cancelled")
	return nil
}
