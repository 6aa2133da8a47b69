package clock

import "time"

// Clock provides an abstraction over time retrieval for deterministic testing.
type Clock interface {
	Now() time.Time
}

// RealClock returns the real current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock always returns a fixed time. Useful for tests.
type FixedClock struct{ t time.Time }

func NewFixed(t time.Time) FixedClock { return FixedClock{t: t} }

func (f FixedClock) Now() time.Time { return f.t }

// SteppingClock returns a settable time. Useful for tests that advance time.
type SteppingClock struct{ t time.Time }

func NewStepping(t time.Time) *SteppingClock { return &SteppingClock{t: t} }

func (s *SteppingClock) Now() time.Time { return s.t }

// Advance moves the clock forward by d and returns the new time.
func (s *SteppingClock) Advance(d time.Duration) time.Time {
	s.t = s.t.Add(d)
	return s.t
}

// Set moves the clock to the given instant.
func (s *SteppingClock) Set(t time.Time) { s.t = t }
