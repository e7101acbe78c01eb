package app

import "charm.land/lipgloss/v2"

var (
	headerStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	selectedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("236"))
	dividerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	indexStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	timeStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	durationStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true)
	freshStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("120")).Bold(true)
	freshBadgeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("29")).Bold(true)
	runActiveStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	runFailedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	runDoneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	stateLiveStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("70")).Bold(true)
	stateErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	stateIdleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	toastInfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("29")).Bold(true)
	toastWarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("136")).Bold(true)
	toastErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Bold(true)
)
