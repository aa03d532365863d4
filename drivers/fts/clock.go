package fts

import "time"

// Clock abstracts time for the polling loops so tests can drive them with a
// virtual clock instead of real sleeps.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock is the production clock.
var SystemClock Clock = systemClock{}
