//go:build windows

package session

import (
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"unsafe"
)

var (
	user32   = syscall.NewLazyDLL("user32.dll")
	kernel32Collector = syscall.NewLazyDLL("kernel32.dll")

	procRegisterClassW          = user32.NewProc("RegisterClassW")
	procCreateWindowExW         = user32.NewProc("CreateWindowExW")
	procDefWindowProcW          = user32.NewProc("DefWindowProcW")
	procGetMessageW             = user32.NewProc("GetMessageW")
	procTranslateMessage        = user32.NewProc("TranslateMessage")
	procDispatchMessageW        = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW      = user32.NewProc("PostThreadMessageW")
	procRegisterRawInputDevices = user32.NewProc("RegisterRawInputDevices")
	procGetRawInputData         = user32.NewProc("GetRawInputData")
	procGetWindowLongPtrW       = user32.NewProc("GetWindowLongPtrW")
	procSetWindowLongPtrW       = user32.NewProc("SetWindowLongPtrW")
	procGetForegroundWindow     = user32.NewProc("GetForegroundWindow")
	procDestroyWindow           = user32.NewProc("DestroyWindow")

	procGetCurrentThreadId = kernel32Collector.NewProc("GetCurrentThreadId")
)

const (
	wmInput     = 0x00FF
	wmNCDestroy = 0x0082
	wmQuit      = 0x0012

	gwlpUserdata = ^uintptr(20) // -21, matches GWLP_USERDATA on both 32/64-bit builds

	ridevInputSink = 0x00000100
	ridInput       = 0x10000003

	rimTypeMouse    = 0
	rimTypeKeyboard = 1

	riKeyBreak = 0x01

	riMouseLeftButtonDown   = 0x0001
	riMouseLeftButtonUp     = 0x0002
	riMouseRightButtonDown  = 0x0004
	riMouseRightButtonUp    = 0x0008
	riMouseMiddleButtonDown = 0x0010
	riMouseMiddleButtonUp   = 0x0020
	riMouseButton4Down      = 0x0040
	riMouseButton4Up        = 0x0080
	riMouseButton5Down      = 0x0100
	riMouseButton5Up        = 0x0200
	riMouseWheel            = 0x0400

	csHRedraw        = 0x0002
	csVRedraw        = 0x0001
	wsOverlappedWindow = 0x00CF0000
	cwUseDefault     = -2147483648 // 0x80000000 as int32
)

type wndClassW struct {
	style       uint32
	lpfnWndProc uintptr
	clsExtra    int32
	wndExtra    int32
	hInstance   uintptr
	hIcon       uintptr
	hCursor     uintptr
	hbrBg       uintptr
	menuName    *uint16
	className   *uint16
}

type msgT struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      struct{ x, y int32 }
}

type rawInputHeader struct {
	dwType  uint32
	dwSize  uint32
	hDevice uintptr
	wParam  uintptr
}

type rawMouse struct {
	usFlags            uint16
	_                  uint16
	usButtonFlags      uint16
	usButtonData       uint16
	ulRawButtons       uint32
	lLastX             int32
	lLastY             int32
	ulExtraInformation uint32
}

type rawKeyboard struct {
	makeCode         uint16
	flags            uint16
	reserved         uint16
	vKey             uint16
	message          uint32
	extraInformation uint32
}

// rawInputContext is pinned behind GWLP_USERDATA for the lifetime of the
// hidden window and released on WM_NCDESTROY, mirroring the Box::into_raw
// / Box::from_raw pairing in the original rawinput collector.
type rawInputContext struct {
	queue      *spscQueue
	clock      Clock
	targetHwnd uintptr
}

var (
	contextRegistryMu sync.Mutex
	contextRegistry   = map[uintptr]*rawInputContext{}
	nextContextID     uintptr
)

func toUTF16Ptr(s string) *uint16 {
	p, _ := syscall.UTF16PtrFromString(s)
	return p
}

// rawInputCollector drives a hidden (never shown) window on its own locked
// OS thread, registers for raw mouse and keyboard input, and decodes each
// WM_INPUT message into a timestamped InputEvent pushed onto an unbounded
// SPSC queue the pipeline drains.
type rawInputCollector struct {
	queue    *spscQueue
	threadID uint32
	hwnd     uintptr
	done     chan struct{}
}

// NewPlatformInputCollector starts the raw-input worker thread and blocks
// until either its window is ready or setup fails.
func NewPlatformInputCollector(clock Clock, targetHwnd uintptr) (InputCollector, error) {
	queue := newSPSCQueue()
	ready := make(chan error, 1)
	hwndCh := make(chan uintptr, 1)
	threadIDCh := make(chan uint32, 1)
	done := make(chan struct{})

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		runMessageLoop(queue, clock, targetHwnd, ready, hwndCh, threadIDCh, done)
	}()

	if err := <-ready; err != nil {
		return nil, err
	}

	return &rawInputCollector{
		queue:    queue,
		threadID: <-threadIDCh,
		hwnd:     <-hwndCh,
		done:     done,
	}, nil
}

func (c *rawInputCollector) DrainEvents(start, end QpcTimestamp) ([]InputEvent, error) {
	c.queue.drainBefore(start)
	return c.queue.drainBefore(end), nil
}

func (c *rawInputCollector) Close() error {
	procPostThreadMessageW.Call(uintptr(c.threadID), wmQuit, 0, 0)
	<-c.done
	return nil
}

func runMessageLoop(queue *spscQueue, clock Clock, targetHwnd uintptr, ready chan<- error, hwndCh chan<- uintptr, threadIDCh chan<- uint32, done chan<- struct{}) {
	defer close(done)

	className := toUTF16Ptr("stepforge_collector_rawinput")
	wc := wndClassW{
		style:       csHRedraw | csVRedraw,
		lpfnWndProc: windowProcCallback,
		className:   className,
	}
	atom, _, _ := procRegisterClassW.Call(uintptr(unsafe.Pointer(&wc)))
	if atom == 0 {
		ready <- fmt.Errorf("RegisterClassW failed")
		return
	}

	hwnd, _, _ := procCreateWindowExW.Call(
		0,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(className)),
		uintptr(wsOverlappedWindow),
		uintptr(cwUseDefault), uintptr(cwUseDefault), uintptr(cwUseDefault), uintptr(cwUseDefault),
		0, 0, 0, 0,
	)
	if hwnd == 0 {
		ready <- fmt.Errorf("CreateWindowExW failed")
		return
	}

	contextRegistryMu.Lock()
	nextContextID++
	id := nextContextID
	contextRegistry[id] = &rawInputContext{queue: queue, clock: clock, targetHwnd: targetHwnd}
	contextRegistryMu.Unlock()
	procSetWindowLongPtrW.Call(hwnd, gwlpUserdata, id)

	type rawInputDevice struct {
		usUsagePage uint16
		usUsage     uint16
		dwFlags     uint32
		hwndTarget  uintptr
	}
	devices := [2]rawInputDevice{
		{usUsagePage: 0x01, usUsage: 0x02, dwFlags: ridevInputSink, hwndTarget: hwnd}, // mouse
		{usUsagePage: 0x01, usUsage: 0x06, dwFlags: ridevInputSink, hwndTarget: hwnd}, // keyboard
	}
	ok, _, _ := procRegisterRawInputDevices.Call(
		uintptr(unsafe.Pointer(&devices[0])), 2, unsafe.Sizeof(devices[0]),
	)
	if ok == 0 {
		ready <- fmt.Errorf("RegisterRawInputDevices failed")
		return
	}

	threadID, _, _ := procGetCurrentThreadId.Call()

	ready <- nil
	hwndCh <- hwnd
	threadIDCh <- uint32(threadID)

	var msg msgT
	for {
		r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		if int32(r) <= 0 {
			break
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}
}

// windowProcCallback is registered as the window class's WndProc. It must
// remain a syscall.NewCallback-compatible bare function: no closures, no
// captured state, everything reached through GWLP_USERDATA.
var windowProcCallback = syscall.NewCallback(func(hwnd uintptr, msg uint32, wParam, lParam uintptr) uintptr {
	switch msg {
	case wmInput:
		handleRawInput(hwnd, lParam)
		return 0
	case wmNCDestroy:
		idPtr, _, _ := procGetWindowLongPtrW.Call(hwnd, gwlpUserdata)
		if idPtr != 0 {
			contextRegistryMu.Lock()
			delete(contextRegistry, idPtr)
			contextRegistryMu.Unlock()
			procSetWindowLongPtrW.Call(hwnd, gwlpUserdata, 0)
		}
	}
	r, _, _ := procDefWindowProcW.Call(hwnd, uintptr(msg), wParam, lParam)
	return r
})

func handleRawInput(hwnd, lParam uintptr) {
	idPtr, _, _ := procGetWindowLongPtrW.Call(hwnd, gwlpUserdata)
	contextRegistryMu.Lock()
	ctx, ok := contextRegistry[idPtr]
	contextRegistryMu.Unlock()
	if !ok {
		return
	}
	if ctx.targetHwnd != 0 {
		fg, _, _ := procGetForegroundWindow.Call()
		if fg != ctx.targetHwnd {
			return
		}
	}

	var size uint32
	headerSize := uint32(unsafe.Sizeof(rawInputHeader{}))
	procGetRawInputData.Call(lParam, ridInput, 0, uintptr(unsafe.Pointer(&size)), uintptr(headerSize))
	if size == 0 {
		return
	}
	buf := make([]byte, size)
	read, _, _ := procGetRawInputData.Call(lParam, ridInput, uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)), uintptr(headerSize))
	if read == 0 {
		return
	}

	ts, err := ctx.clock.Now()
	if err != nil {
		return
	}

	header := (*rawInputHeader)(unsafe.Pointer(&buf[0]))
	dataOffset := unsafe.Sizeof(rawInputHeader{})

	switch header.dwType {
	case rimTypeKeyboard:
		kb := (*rawKeyboard)(unsafe.Pointer(&buf[dataOffset]))
		if kb.vKey == 255 {
			return
		}
		name, found := KeyName(kb.vKey)
		if !found {
			return
		}
		isDown := kb.flags&riKeyBreak == 0
		kind := KindKeyUp
		if isDown {
			kind = KindKeyDown
		}
		ctx.queue.push(InputEvent{QpcTs: ts, Kind: kind, Key: name})

	case rimTypeMouse:
		mouse := (*rawMouse)(unsafe.Pointer(&buf[dataOffset]))
		if mouse.lLastX != 0 || mouse.lLastY != 0 {
			ctx.queue.push(InputEvent{QpcTs: ts, Kind: KindMouseMove, DX: mouse.lLastX, DY: mouse.lLastY})
		}
		flags := mouse.usButtonFlags
		emitButton(ctx.queue, ts, flags, riMouseLeftButtonDown, MouseLeft, true)
		emitButton(ctx.queue, ts, flags, riMouseLeftButtonUp, MouseLeft, false)
		emitButton(ctx.queue, ts, flags, riMouseRightButtonDown, MouseRight, true)
		emitButton(ctx.queue, ts, flags, riMouseRightButtonUp, MouseRight, false)
		emitButton(ctx.queue, ts, flags, riMouseMiddleButtonDown, MouseMiddle, true)
		emitButton(ctx.queue, ts, flags, riMouseMiddleButtonUp, MouseMiddle, false)
		emitButton(ctx.queue, ts, flags, riMouseButton4Down, MouseX1, true)
		emitButton(ctx.queue, ts, flags, riMouseButton4Up, MouseX1, false)
		emitButton(ctx.queue, ts, flags, riMouseButton5Down, MouseX2, true)
		emitButton(ctx.queue, ts, flags, riMouseButton5Up, MouseX2, false)
		if flags&riMouseWheel != 0 {
			delta := int32(int16(mouse.usButtonData))
			ctx.queue.push(InputEvent{QpcTs: ts, Kind: KindMouseWheel, WheelDelta: delta})
		}
	}
}

func emitButton(queue *spscQueue, ts QpcTimestamp, flags uint16, mask uint16, button MouseButton, isDown bool) {
	if flags&mask != 0 {
		queue.push(InputEvent{QpcTs: ts, Kind: KindMouseButton, Button: button, IsDown: isDown})
	}
}
