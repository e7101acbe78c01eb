package app

import (
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"flowdeck/internal/types"
)

const toastDuration = 4 * time.Second

type toastExpiredMsg struct {
	seq int
}

type queuedToast struct {
	level   types.NotificationLevel
	message string
}

func (m *Model) showInfoToast(message string) tea.Cmd {
	return m.showToast(types.NotificationInfo, message)
}

func (m *Model) showWarningToast(message string) tea.Cmd {
	return m.showToast(types.NotificationWarning, message)
}

func (m *Model) showErrorToast(message string) tea.Cmd {
	return m.showToast(types.NotificationError, message)
}

// showToast displays message now, or queues it behind an error toast that
// is still on screen.
func (m *Model) showToast(level types.NotificationLevel, message string) tea.Cmd {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}
	if m.toastActive(m.now()) && m.toastLevel == types.NotificationError && level != types.NotificationError {
		m.pendingToasts = append(m.pendingToasts, queuedToast{level: level, message: message})
		return nil
	}
	m.toastText = message
	m.toastLevel = level
	m.toastUntil = m.now().Add(toastDuration)
	m.toastSeq++
	seq := m.toastSeq
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

func (m *Model) expireToast(msg toastExpiredMsg) tea.Cmd {
	if msg.seq != m.toastSeq {
		return nil
	}
	m.clearToast()
	if len(m.pendingToasts) == 0 {
		return nil
	}
	next := m.pendingToasts[0]
	m.pendingToasts = m.pendingToasts[1:]
	return m.showToast(next.level, next.message)
}

func (m *Model) clearToast() {
	m.toastText = ""
	m.toastLevel = types.NotificationInfo
	m.toastUntil = time.Time{}
}

func (m *Model) toastActive(at time.Time) bool {
	if strings.TrimSpace(m.toastText) == "" {
		return false
	}
	if m.toastUntil.IsZero() {
		return true
	}
	return at.Before(m.toastUntil)
}

func (m *Model) toastLine(width int) string {
	if !m.toastActive(m.now()) || width <= 0 {
		return ""
	}
	text := truncateToWidth(m.toastText, max(1, width-4))
	pill := m.toastStyle().Render(" " + text + " ")
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, pill)
}

func (m *Model) toastStyle() lipgloss.Style {
	switch m.toastLevel {
	case types.NotificationWarning:
		return toastWarningStyle
	case types.NotificationError:
		return toastErrorStyle
	default:
		return toastInfoStyle
	}
}
