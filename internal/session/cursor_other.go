//go:build !windows

package session

// NewPlatformCursorProbe has no non-Windows implementation; it returns a
// probe that always reports neutralCursorSample(), matching the degrade-to-
// neutral contract CursorProbe implementations must honor on failure.
func NewPlatformCursorProbe(targetHwnd uintptr, screenW, screenH int) CursorProbe {
	return NewMockCursorProbe(nil)
}
