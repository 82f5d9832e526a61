//go:build windows

package session

import (
	"fmt"
	"syscall"
	"unsafe"
)

var (
	kernel32                    = syscall.NewLazyDLL("kernel32.dll")
	procQueryPerformanceCounter = kernel32.NewProc("QueryPerformanceCounter")
	procQueryPerformanceFreq    = kernel32.NewProc("QueryPerformanceFrequency")
)

// qpcClock reads the Windows high-resolution performance counter directly,
// the same tick source the raw-input collector timestamps events against.
type qpcClock struct {
	freq int64
}

// NewClock returns the platform Clock. On Windows this is QPC-backed; the
// frequency is latched once at construction since the OS guarantees it
// never changes while the system is running.
func NewClock() Clock {
	var freq int64
	procQueryPerformanceFreq.Call(uintptr(unsafe.Pointer(&freq)))
	if freq == 0 {
		freq = 10_000_000
	}
	return qpcClock{freq: freq}
}

func (c qpcClock) Now() (QpcTimestamp, error) {
	var counter int64
	ret, _, err := procQueryPerformanceCounter.Call(uintptr(unsafe.Pointer(&counter)))
	if ret == 0 {
		return 0, fmt.Errorf("QueryPerformanceCounter: %w", err)
	}
	return QpcTimestamp(counter), nil
}

func (c qpcClock) Frequency() int64 { return c.freq }
