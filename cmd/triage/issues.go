package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	triageclient "triage/internal/client"
)

func runIssues(args []string) error {
	fs := flag.NewFlagSet("issues", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	query := fs.String("q", "", "filter by title substring")
	label := fs.String("label", "", "filter by label")
	page := fs.Int("page", 1, "page number")
	pageSize := fs.Int("page-size", 20, "issues per page")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: triage issues <repo-id> [--q <text>] [--label <name>]")
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	issues, err := c.ListIssues(ctx, fs.Arg(0), triageclient.IssueQuery{
		Q:        *query,
		Label:    *label,
		Page:     *page,
		PageSize: *pageSize,
	})
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		fmt.Println("no matching issues")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tNUMBER\tAGE\tLABELS\tTITLE")
	for _, issue := range issues {
		fmt.Fprintf(writer, "%d\t#%d\t%dd\t%s\t%s\n",
			issue.ID, issue.Number, issue.AgeDays,
			strings.Join(issue.Labels, ","), issue.Title)
	}
	return writer.Flush()
}
