// Package control implements the localhost WebSocket bridge between an
// out-of-process host UI and a running recording session: inbound control
// frames update the session's thought/goals/stop state, outbound frames
// relay the pipeline's StatusEvent stream.
package control

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stepforge/collector/internal/logging"
	"github.com/stepforge/collector/internal/session"
)

var log = logging.L("control")

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// inboundFrame is the tagged-union shape of every message a host UI may
// send. Exactly the fields relevant to Type are populated.
type inboundFrame struct {
	Type string `json:"type"`

	// set_thought
	Text string `json:"text"`

	// set_goals
	Long string   `json:"long"`
	Mid  []string `json:"mid"`
}

// outboundFrame mirrors a StatusEvent, or a list_windows reply, as JSON
// for the host UI.
type outboundFrame struct {
	Type         string   `json:"type"`
	SessionName  string   `json:"session_name,omitempty"`
	StepIndex    uint64   `json:"step_index,omitempty"`
	QpcTs        uint64   `json:"qpc_ts,omitempty"`
	IsForeground bool     `json:"is_foreground,omitempty"`
	OutputDir    string   `json:"output_dir,omitempty"`
	Message      string   `json:"message,omitempty"`
	Windows      []window `json:"windows,omitempty"`
}

// window is one entry in a list_windows reply.
type window struct {
	Hwnd  uintptr `json:"hwnd"`
	Title string  `json:"title"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server exposes a recording session's SessionContext and status channel
// over a single-client localhost WebSocket endpoint.
type Server struct {
	ctx    *session.SessionContext
	status chan session.StatusEvent

	httpServer *http.Server
	stopOnce   sync.Once
	connActive sync.Mutex
}

// NewServer prepares a server for addr (e.g. "127.0.0.1:7643"), which
// ListenAndServe binds, serving one WebSocket connection at "/control". A second connection attempt while one is
// already active is rejected.
func NewServer(addr string, ctx *session.SessionContext, status chan session.StatusEvent) *Server {
	s := &Server{ctx: ctx, status: status}
	mux := http.NewServeMux()
	mux.HandleFunc("/control", s.handleConn)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

// ListenAndServe runs until the server is closed; callers typically run it
// in its own goroutine.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Close stops accepting connections. An already-upgraded control connection
// is not closed by it; that connection's status relay ends when the
// connection itself does.
func (s *Server) Close() error {
	var err error
	s.stopOnce.Do(func() {
		err = s.httpServer.Close()
	})
	return err
}

func (s *Server) handleConn(w http.ResponseWriter, r *http.Request) {
	if !s.connActive.TryLock() {
		http.Error(w, "control connection already active", http.StatusConflict)
		return
	}
	defer s.connActive.Unlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("control upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// gorilla/websocket allows at most one concurrent writer; relayStatus
	// and the inbound-frame handler below (list_windows replies) both need
	// to write, so every write on this connection goes through connWriter's
	// mutex.
	cw := &connWriter{conn: conn}

	done := make(chan struct{})
	go s.relayStatus(cw, done)
	defer close(done)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleInbound(cw, payload)
	}
}

func (s *Server) handleInbound(cw *connWriter, payload []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		log.Warn("dropping malformed control frame", "error", err)
		return
	}

	switch frame.Type {
	case "set_thought":
		s.ctx.SetThought(frame.Text)
	case "set_goals":
		goals := frame.Mid
		if frame.Long != "" {
			goals = append([]string{frame.Long}, goals...)
		}
		s.ctx.SetGoals(goals)
	case "stop":
		s.ctx.RequestStop()
	case "list_windows":
		s.handleListWindows(cw)
	default:
		log.Warn("unknown control frame type", "type", frame.Type)
	}
}

// handleListWindows answers a list_windows request with the target
// candidates session.ListWindows() finds; a platform without a window-
// enumeration backend gets an empty list rather than a dropped connection.
func (s *Server) handleListWindows(cw *connWriter) {
	entries, err := session.ListWindows()
	if err != nil {
		log.Warn("list_windows failed", "error", err)
	}

	windows := make([]window, len(entries))
	for i, e := range entries {
		windows[i] = window{Hwnd: e.Hwnd, Title: e.Title}
	}

	if err := cw.writeJSON(outboundFrame{Type: "list_windows", Windows: windows}); err != nil {
		log.Warn("failed to send list_windows reply", "error", err)
	}
}

// connWriter serializes writes to a single *websocket.Conn across the
// read-loop goroutine (inbound-frame replies) and the relayStatus
// goroutine (pings and status relays), since gorilla/websocket permits
// only one concurrent writer per connection.
type connWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (cw *connWriter) writeJSON(v any) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return cw.conn.WriteJSON(v)
}

func (cw *connWriter) writePing() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return cw.conn.WriteMessage(websocket.PingMessage, nil)
}

func (s *Server) relayStatus(cw *connWriter, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := cw.writePing(); err != nil {
				return
			}
		case ev, ok := <-s.status:
			if !ok {
				return
			}
			if err := cw.writeJSON(toOutbound(ev)); err != nil {
				return
			}
		}
	}
}

func toOutbound(ev session.StatusEvent) outboundFrame {
	out := outboundFrame{Message: ev.Message, OutputDir: ev.OutputDir, SessionName: ev.SessionName}
	switch ev.Kind {
	case session.StatusStarted:
		out.Type = "started"
	case session.StatusFrame:
		out.Type = "frame"
		out.StepIndex = uint64(ev.StepIndex)
		out.QpcTs = uint64(ev.QpcTs)
		out.IsForeground = ev.IsForeground
	case session.StatusFinished:
		out.Type = "finished"
	case session.StatusError:
		out.Type = "error"
	}
	return out
}
