package activity

import "flowdeck/internal/types"

// Notifier surfaces short, human-readable messages to the operator.
type Notifier interface {
	Notify(level types.NotificationLevel, message string)
}

type NotifierFunc func(level types.NotificationLevel, message string)

func (f NotifierFunc) Notify(level types.NotificationLevel, message string) {
	if f != nil {
		f(level, message)
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(types.NotificationLevel, string) {}
