package app

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	repoStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("69")).Bold(true)
	repoActiveStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	issueStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	selectedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("236"))
	labelStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	dividerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	badgeScopingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("178")).Bold(true)
	badgeRunningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Bold(true)
	badgeBlockedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	badgePRReadyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("120")).Bold(true)
	planDoneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	planPendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	riskStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("179"))
	progressBarStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	progressTrackStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	promptStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Bold(true)
)
