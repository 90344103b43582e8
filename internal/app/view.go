package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"triage/internal/types"
)

func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	columns := make([]string, 0, 3)
	if !m.sidebarOff {
		columns = append(columns, m.renderSidebar())
	}
	columns = append(columns, m.renderIssueList(), m.renderDetail())
	b.WriteString(joinColumns(columns...))

	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())
	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m *Model) contentHeight() int {
	h := m.height - 4
	if h < minContentHeight {
		h = minContentHeight
	}
	return h
}

func (m *Model) issueListWidth() int {
	remaining := m.width - m.sidebarWidth()
	w := remaining * 2 / 5
	if w < 30 {
		w = 30
	}
	return w
}

func (m *Model) detailWidth() int {
	w := m.width - m.sidebarWidth() - m.issueListWidth() - 2
	if w < 20 {
		w = 20
	}
	return w
}

func (m *Model) renderHeader() string {
	title := headerStyle.Render("triage")
	var filters []string
	if m.search != "" {
		filters = append(filters, "search: "+m.search)
	}
	if m.labelFilter != "" {
		filters = append(filters, "label: "+m.labelFilter)
	}
	if len(filters) == 0 {
		return title
	}
	return title + "  " + helpStyle.Render(strings.Join(filters, "  "))
}

func (m *Model) renderSidebar() string {
	width := m.sidebarWidth()
	lines := make([]string, 0, len(m.repos)+1)
	lines = append(lines, repoStyle.Render(truncate("Repositories", width)))

	if len(m.repos) == 0 {
		lines = append(lines, helpStyle.Render(truncate("(none; press c)", width)))
	}
	for i, repo := range m.repos {
		label := fmt.Sprintf("%s/%s (%d)", repo.Owner, repo.Name, repo.OpenIssuesCount)
		label = truncate(label, width-2)
		switch {
		case i == m.repoIndex && m.focus == focusSidebar:
			lines = append(lines, selectedStyle.Render("> "+label))
		case i == m.repoIndex:
			lines = append(lines, repoActiveStyle.Render("> "+label))
		default:
			lines = append(lines, "  "+label)
		}
	}
	return lipgloss.NewStyle().Width(width).Height(m.contentHeight()).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderIssueList() string {
	width := m.issueListWidth()
	lines := make([]string, 0, len(m.issues)+1)
	lines = append(lines, repoStyle.Render(truncate("Issues", width)))

	if len(m.issues) == 0 {
		lines = append(lines, helpStyle.Render(truncate("(no open issues)", width)))
	}
	for i, issue := range m.issues {
		row := m.renderIssueRow(&issue, width-2)
		if i == m.issueIndex {
			if m.focus == focusIssues {
				lines = append(lines, selectedStyle.Render("> "+row))
			} else {
				lines = append(lines, repoActiveStyle.Render("> "+row))
			}
		} else {
			lines = append(lines, "  "+row)
		}
	}
	return lipgloss.NewStyle().Width(width).Height(m.contentHeight()).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderIssueRow(issue *types.Issue, width int) string {
	badge := ""
	if update, ok := m.issueUpdates[issue.ID]; ok && update.Status != "" {
		badge = " " + badgePRReadyStyle.Render("["+update.Status+"]")
	}
	row := fmt.Sprintf("#%d %s", issue.Number, issue.Title)
	if len(issue.Labels) > 0 {
		row += " " + labelStyle.Render("("+strings.Join(issue.Labels, ",")+")")
	}
	return truncate(row, width) + badge
}

func (m *Model) renderDetail() string {
	width := m.detailWidth()
	issue := m.selectedIssue()
	if issue == nil {
		return lipgloss.NewStyle().Width(width).Height(m.contentHeight()).
			Render(helpStyle.Render("select an issue"))
	}

	var b strings.Builder
	b.WriteString(repoStyle.Render(truncate(fmt.Sprintf("#%d %s", issue.Number, issue.Title), width)))
	b.WriteString("\n")
	meta := fmt.Sprintf("by %s, %d days old", issue.Author, issue.AgeDays)
	b.WriteString(statusStyle.Render(truncate(meta, width)))
	b.WriteString("\n")
	b.WriteString(dividerStyle.Render(strings.Repeat("-", min(width, 40))))
	b.WriteString("\n")

	panel := m.renderSessionPanel(width)
	if panel != "" {
		b.WriteString(panel)
		b.WriteString("\n")
		b.WriteString(dividerStyle.Render(strings.Repeat("-", min(width, 40))))
		b.WriteString("\n")
	}

	if issue.Body != "" {
		b.WriteString(renderMarkdown(issue.Body, width))
	} else {
		b.WriteString(helpStyle.Render("(no description)"))
	}

	return lipgloss.NewStyle().Width(width).Height(m.contentHeight()).Render(b.String())
}

func (m *Model) renderStatusLine() string {
	if m.mode == uiModeConfirmDelete {
		repo := m.selectedRepo()
		name := ""
		if repo != nil {
			name = repo.Owner + "/" + repo.Name
		}
		return promptStyle.Render(fmt.Sprintf("disconnect %s? (y/n)", name))
	}
	if m.mode != uiModeNormal {
		return promptStyle.Render(m.input.View())
	}
	if m.lastErr != "" {
		return errorStyle.Render(truncate("error: "+m.lastErr, m.width))
	}
	line := m.status
	if m.spinning {
		line = m.spin.View() + " " + line
	}
	return statusStyle.Render(truncate(line, m.width))
}

func (m *Model) renderHelp() string {
	parts := []string{
		"c connect", "R resync", "D disconnect",
		"/ search", "l label",
		"s scope", "f follow-up", "e execute", "x cancel", "y copy PR",
		"b sidebar", "q quit",
	}
	return helpStyle.Render(truncate(strings.Join(parts, "  "), m.width))
}
