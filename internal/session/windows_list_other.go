//go:build !windows

package session

import "errors"

// ErrWindowListUnsupported is returned by ListWindows on platforms without
// a window-enumeration backend.
var ErrWindowListUnsupported = errors.New("window listing not implemented for this OS")

func ListWindows() ([]WindowEntry, error) {
	return nil, ErrWindowListUnsupported
}
