package app

import (
	"fmt"
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"triage/internal/session"
)

// renderSessionPanel shows the agent's progress for the selected
// issue's session: display status, progress bar, summary, plan, and
// risks. Empty when the issue has no session.
func (m *Model) renderSessionPanel(width int) string {
	if m.activeSession == nil {
		return ""
	}

	var detailStatus session.DisplayStatus
	var out *session.Output
	if m.lastUpdate != nil {
		detailStatus = session.MapDisplayStatus(m.lastUpdate.Detail)
		out = m.lastUpdate.Output
	} else {
		detailStatus = session.DisplayInitializing
	}

	var b strings.Builder
	b.WriteString(statusBadge(detailStatus))
	b.WriteString(" ")
	b.WriteString(statusStyle.Render(m.activeSession.SessionID))
	b.WriteString("\n")

	if out == nil {
		b.WriteString(helpStyle.Render("waiting for first progress report..."))
		return b.String()
	}

	b.WriteString(renderProgressBar(out.ProgressPct, min(width-10, 30)))
	b.WriteString(fmt.Sprintf(" %d%%  ", out.ProgressPct))
	b.WriteString(confidenceBadge(out.Confidence))
	b.WriteString("\n")

	if out.Summary != "" {
		b.WriteString(truncate(out.Summary, width))
		b.WriteString("\n")
	}

	for _, step := range out.ActionPlan {
		mark := "[ ]"
		style := planPendingStyle
		if step.Done {
			mark = "[x]"
			style = planDoneStyle
		}
		b.WriteString(style.Render(truncate(fmt.Sprintf("%s %d. %s", mark, step.Step, step.Desc), width)))
		b.WriteString("\n")
	}

	for _, risk := range out.Risks {
		b.WriteString(riskStyle.Render(truncate("! "+risk, width)))
		b.WriteString("\n")
	}

	if out.EstimatedHours > 0 {
		b.WriteString(statusStyle.Render(fmt.Sprintf("est. %.1fh", out.EstimatedHours)))
		b.WriteString("\n")
	}

	if url := m.currentPRURL(); url != "" {
		b.WriteString(badgePRReadyStyle.Render(truncate("PR: "+url, width)))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func statusBadge(status session.DisplayStatus) string {
	label := "[" + status.Label() + "]"
	switch status {
	case session.DisplayScoping, session.DisplayInitializing:
		return badgeScopingStyle.Render(label)
	case session.DisplayExecuting:
		return badgeRunningStyle.Render(label)
	case session.DisplayAwaitingInput:
		return badgeBlockedStyle.Render(label)
	case session.DisplayPRReady:
		return badgePRReadyStyle.Render(label)
	default:
		return statusStyle.Render(label)
	}
}

func confidenceBadge(confidence string) string {
	switch confidence {
	case session.ConfidenceHigh:
		return badgePRReadyStyle.Render("high confidence")
	case session.ConfidenceMedium:
		return badgeScopingStyle.Render("medium confidence")
	default:
		return badgeBlockedStyle.Render("low confidence")
	}
}

func renderProgressBar(pct, width int) string {
	if width < 4 {
		width = 4
	}
	filled := width * pct / 100
	if filled > width {
		filled = width
	}
	bar := progressBarStyle.Render(strings.Repeat("█", filled))
	track := progressTrackStyle.Render(strings.Repeat("░", width-filled))
	return bar + track
}

// truncate clips a possibly styled line to the given display width.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(xansi.Strip(s)) <= width {
		return s
	}
	return xansi.Truncate(s, width-1, "…")
}
