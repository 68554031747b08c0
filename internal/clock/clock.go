// Package clock provides an injectable second-resolution time source.
//
// The aggregator stamps readings with whole-second "moments". Production
// code uses the system clock; tests supply a Manual clock for deterministic
// timestamps.
package clock

import (
	"sync"
	"time"
)

// Clock is a second-resolution time source.
type Clock interface {
	// Now returns the current moment as Unix seconds.
	Now() int64
}

// System returns a Clock backed by the wall clock.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() int64 {
	return time.Now().Unix()
}

// Manual is a Clock whose moment is set explicitly. Safe for concurrent use.
type Manual struct {
	mu     sync.Mutex
	moment int64
}

// NewManual creates a Manual clock starting at the given moment.
func NewManual(moment int64) *Manual {
	return &Manual{moment: moment}
}

// Now returns the current manual moment.
func (m *Manual) Now() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.moment
}

// Set sets the current moment.
func (m *Manual) Set(moment int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moment = moment
}

// Advance moves the clock forward by the given number of seconds.
func (m *Manual) Advance(seconds int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moment += seconds
}
