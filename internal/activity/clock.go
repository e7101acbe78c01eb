package activity

import "time"

// Clock schedules callbacks. AfterFunc returns a stop func that reports
// whether the callback was still pending.
type Clock interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

func RealClock() Clock {
	return realClock{}
}
