//go:build windows

package session

import (
	"strings"
	"syscall"
	"unsafe"
)

var (
	procEnumWindows    = user32.NewProc("EnumWindows")
	procGetWindowTextW = user32.NewProc("GetWindowTextW")
	procIsWindowVisible = user32.NewProc("IsWindowVisible")
	procGetClassNameW  = user32.NewProc("GetClassNameW")
)

// ListWindows enumerates visible top-level windows, preferring each
// window's title and falling back to its window class name when the title
// is blank.
func ListWindows() ([]WindowEntry, error) {
	var entries []WindowEntry

	cb := syscall.NewCallback(func(hwnd uintptr, lparam uintptr) uintptr {
		visible, _, _ := procIsWindowVisible.Call(hwnd)
		if visible == 0 {
			return 1
		}

		titleBuf := make([]uint16, 512)
		n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&titleBuf[0])), uintptr(len(titleBuf)))
		title := strings.TrimSpace(syscall.UTF16ToString(titleBuf[:n]))

		if title == "" {
			classBuf := make([]uint16, 256)
			cn, _, _ := procGetClassNameW.Call(hwnd, uintptr(unsafe.Pointer(&classBuf[0])), uintptr(len(classBuf)))
			if cn > 0 {
				title = syscall.UTF16ToString(classBuf[:cn])
			}
		}

		entries = append(entries, WindowEntry{Hwnd: hwnd, Title: title})
		return 1
	})

	procEnumWindows.Call(cb, 0)
	return entries, nil
}
