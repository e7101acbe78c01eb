package app

import (
	"strings"

	tea "charm.land/bubbletea/v2"

	"flowdeck/internal/logging"
	"flowdeck/internal/types"
)

const notificationBuffer = 16

type notificationMsg struct {
	level   types.NotificationLevel
	message string
}

// NotificationQueue carries notifications raised off the UI goroutine into
// the program loop. It never blocks the sender; overflow is logged and
// dropped.
type NotificationQueue struct {
	ch     chan notificationMsg
	logger logging.Logger
}

func NewNotificationQueue(logger logging.Logger) *NotificationQueue {
	return &NotificationQueue{
		ch:     make(chan notificationMsg, notificationBuffer),
		logger: logging.OrNop(logger),
	}
}

func (q *NotificationQueue) Notify(level types.NotificationLevel, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	select {
	case q.ch <- notificationMsg{level: level, message: message}:
	default:
		q.logger.Warn("notification dropped", logging.F("level", level), logging.F("message", message))
	}
}

func waitForNotificationCmd(q *NotificationQueue, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-q.ch:
			return msg
		case <-done:
			return nil
		}
	}
}
