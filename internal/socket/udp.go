package socket

import (
	"context"
	"net"

	"github.com/sentryd/sentryd/internal/agent"
	"github.com/sentryd/sentryd/internal/events"
)

const udpReadBufferSize = 65536

// udpListener is the bound UDP socket. Per spec it is tracked in the
// socket ledger as a connection handle, not an acceptor — there is no
// separate accept step, only one perpetually-listening socket.
type udpListener struct {
	conn *net.UDPConn
}

func (u *udpListener) Kind() agent.SocketHandleKind { return agent.ConnectionHandle }
func (u *udpListener) Close() error                 { return u.conn.Close() }

func serveUDP(ctx context.Context, conn *net.UDPConn, out chan<- Event, log *events.Logger) {
	buf := make([]byte, udpReadBufferSize)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("socket.udp_read_error", "error", err)
			continue
		}
		if n == 0 {
			continue
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		out <- Event{Kind: EventPayload, Payload: payload}
	}
}
