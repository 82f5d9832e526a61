package session

// FrameSource produces one BGRA screen frame per call, plus whether the
// configured target window currently has input focus. The pipeline calls
// NextFrame exactly once per step, synchronously, inside the step loop.
type FrameSource interface {
	// NextFrame returns exactly Width()*Height()*4 bytes of BGRA pixels.
	NextFrame() (pixels []byte, isForeground bool, err error)
	Width() int
	Height() int
	Close() error
}

// MockFrameSource is a deterministic FrameSource for tests and non-Windows
// builds: it returns a fixed-size buffer of a constant fill byte and a
// caller-supplied foreground flag, cycling through a supplied sequence if
// one is given.
type MockFrameSource struct {
	width, height int
	fill          byte
	foregroundSeq []bool
	call          int
}

// NewMockFrameSource returns a MockFrameSource of the given resolution. If
// foregroundSeq is empty, every frame reports isForeground=true.
func NewMockFrameSource(width, height int, fill byte, foregroundSeq []bool) *MockFrameSource {
	return &MockFrameSource{width: width, height: height, fill: fill, foregroundSeq: foregroundSeq}
}

func (m *MockFrameSource) NextFrame() ([]byte, bool, error) {
	buf := make([]byte, m.width*m.height*4)
	for i := range buf {
		buf[i] = m.fill
	}
	foreground := true
	if len(m.foregroundSeq) > 0 {
		foreground = m.foregroundSeq[m.call%len(m.foregroundSeq)]
	}
	m.call++
	return buf, foreground, nil
}

func (m *MockFrameSource) Width() int  { return m.width }
func (m *MockFrameSource) Height() int { return m.height }
func (m *MockFrameSource) Close() error { return nil }
