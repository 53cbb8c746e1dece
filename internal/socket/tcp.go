package socket

import (
	"bufio"
	"context"
	"net"

	"github.com/google/uuid"

	"github.com/sentryd/sentryd/internal/agent"
	"github.com/sentryd/sentryd/internal/events"
)

// tcpAcceptor is the bound TCP listener. Closing it stops accepting new
// connections; connections already open are unaffected.
type tcpAcceptor struct {
	ln net.Listener
}

func (t *tcpAcceptor) Kind() agent.SocketHandleKind { return agent.AcceptorHandle }
func (t *tcpAcceptor) Close() error                 { return t.ln.Close() }

// tcpConnection is one accepted connection. Its id is used only in log
// lines, so concurrent connections can be told apart.
type tcpConnection struct {
	conn net.Conn
	id   string
}

func (c *tcpConnection) Kind() agent.SocketHandleKind { return agent.ConnectionHandle }
func (c *tcpConnection) Close() error                 { return c.conn.Close() }

func serveTCP(ctx context.Context, ln net.Listener, out chan<- Event, log *events.Logger) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("socket.tcp_accept_error", "error", err)
			continue
		}

		handle := &tcpConnection{conn: conn, id: uuid.NewString()}
		log.Info("socket.tcp_connection_opened", "connection", handle.id)
		out <- Event{Kind: EventConnectionOpened, Handle: handle}
		go handleTCPConnection(ctx, handle, out, log)
	}
}

// handleTCPConnection reads newline-terminated payloads from conn until
// it errors or the caller's context is done, emitting one EventPayload
// per line and a final EventConnectionClosed.
func handleTCPConnection(ctx context.Context, handle *tcpConnection, out chan<- Event, log *events.Logger) {
	defer func() {
		handle.conn.Close()
		log.Info("socket.tcp_connection_closed", "connection", handle.id)
		out <- Event{Kind: EventConnectionClosed, Handle: handle}
	}()

	scanner := bufio.NewScanner(handle.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		payload := make([]byte, len(line))
		copy(payload, line)
		out <- Event{Kind: EventPayload, Payload: payload}
	}
}
