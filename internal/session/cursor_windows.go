//go:build windows

package session

import "unsafe"

var (
	procGetCursorInfo = user32.NewProc("GetCursorInfo")
	procGetClientRect  = user32.NewProc("GetClientRect")
	procClientToScreen = user32.NewProc("ClientToScreen")
)

const cursorShowing = 0x00000001

type cursorInfoW struct {
	cbSize      uint32
	flags       uint32
	hCursor     uintptr
	ptScreenPos struct{ x, y int32 }
}

type rectT struct {
	left, top, right, bottom int32
}

type pointT struct {
	x, y int32
}

// windowsCursorProbe reads the system cursor position via GetCursorInfo
// and normalizes it against a target window's client rect. If targetHwnd
// is 0, the probe normalizes against the virtual screen bounds supplied at
// construction instead.
type windowsCursorProbe struct {
	targetHwnd    uintptr
	screenW       int32
	screenH       int32
}

// NewPlatformCursorProbe returns a CursorProbe bound to targetHwnd. When
// targetHwnd is 0, screenW/screenH give the normalization bounds instead.
func NewPlatformCursorProbe(targetHwnd uintptr, screenW, screenH int) CursorProbe {
	return &windowsCursorProbe{targetHwnd: targetHwnd, screenW: int32(screenW), screenH: int32(screenH)}
}

func (p *windowsCursorProbe) Sample() CursorSample {
	var ci cursorInfoW
	ci.cbSize = uint32(unsafe.Sizeof(ci))
	ret, _, _ := procGetCursorInfo.Call(uintptr(unsafe.Pointer(&ci)))
	if ret == 0 || ci.flags&cursorShowing == 0 {
		return neutralCursorSample()
	}

	originX, originY, width, height, ok := p.bounds()
	if !ok || width <= 0 || height <= 0 {
		return neutralCursorSample()
	}

	xNorm := clampNorm(float64(ci.ptScreenPos.x-originX) / float64(width))
	yNorm := clampNorm(float64(ci.ptScreenPos.y-originY) / float64(height))

	return CursorSample{Visible: true, XNorm: xNorm, YNorm: yNorm}
}

// bounds resolves the normalization rectangle: the target window's client
// rect mapped to screen coordinates, or the configured virtual screen size
// when no target window is set.
func (p *windowsCursorProbe) bounds() (originX, originY, width, height int32, ok bool) {
	if p.targetHwnd == 0 {
		return 0, 0, p.screenW, p.screenH, true
	}

	var rect rectT
	r, _, _ := procGetClientRect.Call(p.targetHwnd, uintptr(unsafe.Pointer(&rect)))
	if r == 0 {
		return 0, 0, 0, 0, false
	}

	var origin pointT
	procClientToScreen.Call(p.targetHwnd, uintptr(unsafe.Pointer(&origin)))

	return origin.x, origin.y, rect.right - rect.left, rect.bottom - rect.top, true
}
