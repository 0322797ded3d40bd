package domain

import "github.com/jonboulle/clockwork"

// clock stamps processed_at and stands in for a missing message timestamp.
// Tests and the fixture generator freeze it with SetClock.
var clock = clockwork.NewRealClock()

// SetClock replaces the package time source. Pass nil to restore real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
