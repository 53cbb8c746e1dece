package socket

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/sentryd/sentryd/internal/agent"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestServerBindDeliversTCPPayload(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 8)
	handles, err := New("127.0.0.1", port, nil).Bind(ctx, events)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if len(handles) != 2 {
		t.Fatalf("expected 2 handles, got %d", len(handles))
	}
	assertHandleKinds(t, handles)

	conn, err := net.Dial("tcp", "127.0.0.1:"+strconv.Itoa(port))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(`{"name":"chk1","status":0}` + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if ev := waitForKind(t, events, EventConnectionOpened); ev.Handle.Kind() != agent.ConnectionHandle {
		t.Fatalf("expected connection handle, got %v", ev.Handle.Kind())
	}

	payloadEvent := waitForKind(t, events, EventPayload)
	if string(payloadEvent.Payload) != `{"name":"chk1","status":0}` {
		t.Fatalf("unexpected payload: %s", payloadEvent.Payload)
	}
}

func TestServerBindDeliversUDPPayload(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 8)
	if _, err := New("127.0.0.1", port, nil).Bind(ctx, events); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	conn, err := net.Dial("udp", "127.0.0.1:"+strconv.Itoa(port))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(`{"name":"chk2","status":1}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	payloadEvent := waitForKind(t, events, EventPayload)
	if string(payloadEvent.Payload) != `{"name":"chk2","status":1}` {
		t.Fatalf("unexpected payload: %s", payloadEvent.Payload)
	}
}

func assertHandleKinds(t *testing.T, handles []agent.SocketHandle) {
	t.Helper()
	if handles[0].Kind() != agent.AcceptorHandle {
		t.Fatalf("expected first handle to be the TCP acceptor, got %v", handles[0].Kind())
	}
	if handles[1].Kind() != agent.ConnectionHandle {
		t.Fatalf("expected second handle to be the UDP listener, got %v", handles[1].Kind())
	}
}

func waitForKind(t *testing.T, ch <-chan Event, kind EventKind) Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %v", kind)
		}
	}
}
