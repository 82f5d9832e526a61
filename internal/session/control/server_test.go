package control

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stepforge/collector/internal/session"
)

func dialTestServer(t *testing.T, srv *Server) (*websocket.Conn, func()) {
	t.Helper()
	ts := httptest.NewServer(srv.httpServer.Handler)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/control"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		ts.Close()
		t.Fatalf("dial control server: %v", err)
	}
	return conn, func() {
		conn.Close()
		ts.Close()
	}
}

func TestControlServerSetThoughtUpdatesSessionContext(t *testing.T) {
	ctx := session.NewSessionContext()
	srv := NewServer("127.0.0.1:0", ctx, session.NewStatusChannel())

	conn, cleanup := dialTestServer(t, srv)
	defer cleanup()

	if err := conn.WriteJSON(map[string]string{"type": "set_thought", "text": "heading north"}); err != nil {
		t.Fatalf("write set_thought: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ctx.Thought() == "heading north" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected thought to be updated, got %q", ctx.Thought())
}

func TestControlServerStopRequestsShutdown(t *testing.T) {
	ctx := session.NewSessionContext()
	srv := NewServer("127.0.0.1:0", ctx, session.NewStatusChannel())

	conn, cleanup := dialTestServer(t, srv)
	defer cleanup()

	if err := conn.WriteJSON(map[string]string{"type": "stop"}); err != nil {
		t.Fatalf("write stop: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ctx.StopRequested() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected stop flag to be set")
}

func TestControlServerRelaysStatusEvents(t *testing.T) {
	ctx := session.NewSessionContext()
	status := session.NewStatusChannel()
	srv := NewServer("127.0.0.1:0", ctx, status)

	conn, cleanup := dialTestServer(t, srv)
	defer cleanup()

	session.SendStatus(status, session.StatusEvent{Kind: session.StatusFrame, StepIndex: 3})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame outboundFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read relayed frame: %v", err)
	}
	if frame.Type != "frame" || frame.StepIndex != 3 {
		t.Fatalf("unexpected relayed frame: %+v", frame)
	}
}

func TestControlServerListWindowsRepliesWithoutDroppingConnection(t *testing.T) {
	ctx := session.NewSessionContext()
	srv := NewServer("127.0.0.1:0", ctx, session.NewStatusChannel())

	conn, cleanup := dialTestServer(t, srv)
	defer cleanup()

	if err := conn.WriteJSON(map[string]string{"type": "list_windows"}); err != nil {
		t.Fatalf("write list_windows: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame outboundFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read list_windows reply: %v", err)
	}
	if frame.Type != "list_windows" {
		t.Fatalf("unexpected reply type: %+v", frame)
	}

	// The connection must still be usable afterwards regardless of whether
	// this platform has a window-enumeration backend.
	if err := conn.WriteJSON(map[string]string{"type": "stop"}); err != nil {
		t.Fatalf("write stop after list_windows: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ctx.StopRequested() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected stop flag to be set after list_windows")
}
