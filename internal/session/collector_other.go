//go:build !windows

package session

import "errors"

// ErrPlatformInputUnsupported is returned by NewPlatformInputCollector on
// platforms without a raw-input backend. Recording still works end to end
// against a MockInputCollector, which is how this package's tests run on
// any OS.
var ErrPlatformInputUnsupported = errors.New("platform input collector not implemented for this OS")

// NewPlatformInputCollector has no non-Windows implementation; callers on
// other platforms must supply their own InputCollector (typically a
// MockInputCollector) directly.
func NewPlatformInputCollector(clock Clock, targetHwnd uintptr) (InputCollector, error) {
	return nil, ErrPlatformInputUnsupported
}
