//go:build !windows

package session

import "time"

// monotonicClock is a stand-in tick source for non-Windows builds, where
// there is no raw-input/DXGI capture backend either; it keeps the module
// buildable and the pure aggregator/writer logic testable off-Windows.
type monotonicClock struct{ start time.Time }

// NewClock returns the platform Clock. Off Windows this wraps
// time.Since(start) in 100ns units, QPC's typical resolution, so step math
// written against QpcTimestamp behaves the same regardless of platform.
func NewClock() Clock {
	return monotonicClock{start: time.Now()}
}

func (c monotonicClock) Now() (QpcTimestamp, error) {
	return QpcTimestamp(time.Since(c.start).Nanoseconds() / 100), nil
}

func (c monotonicClock) Frequency() int64 { return 10_000_000 }
