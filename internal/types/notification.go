package types

type NotificationLevel int

const (
	NotificationInfo NotificationLevel = iota
	NotificationWarning
	NotificationError
)

func (l NotificationLevel) String() string {
	switch l {
	case NotificationWarning:
		return "warning"
	case NotificationError:
		return "error"
	default:
		return "info"
	}
}
