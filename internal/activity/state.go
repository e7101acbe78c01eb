package activity

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateClosed
	StateError
	StateRestarting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	case StateRestarting:
		return "restarting"
	default:
		return "idle"
	}
}

// Live reports whether a feed connection is open or being opened.
func (s State) Live() bool {
	return s == StateConnecting || s == StateStreaming
}
