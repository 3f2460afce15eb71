package utils

import "time"

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (s SystemClock) Now() time.Time {
	return time.Now()
}

// MockClock is a Clock for tests that returns FixedNow until changed.
type MockClock struct {
	FixedNow time.Time
}

func (m *MockClock) Now() time.Time {
	return m.FixedNow
}

func (m *MockClock) SetNow(now time.Time) {
	m.FixedNow = now
}

// AdvanceWeeks moves the clock forward by whole weeks.
func (m *MockClock) AdvanceWeeks(weeks int) {
	m.FixedNow = m.FixedNow.AddDate(0, 0, 7*weeks)
}
