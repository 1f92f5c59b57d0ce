package scheduler

import "time"

// Clock abstracts time so tests can drive the job loop with virtual time
// instead of waiting on real intervals.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// NewRealClock returns the production clock.
func NewRealClock() Clock { return realClock{} }
