package socket

import (
	"context"
	"fmt"
	"net"

	"github.com/sentryd/sentryd/internal/agent"
	"github.com/sentryd/sentryd/internal/events"
)

// Server binds the agent's TCP and UDP result listeners on one bind:port
// pair. Bind failures are fatal to agent startup, per §4.1.
type Server struct {
	bind string
	port int
	log  *events.Logger
}

// New returns a Server for the given bind address and port. log may be
// nil.
func New(bind string, port int, log *events.Logger) *Server {
	if log == nil {
		log = events.Noop()
	}
	return &Server{bind: bind, port: port, log: log}
}

// Bind opens the TCP listener and UDP socket and starts their read loops,
// which run until ctx is done. It returns the two socket-ledger handles
// the agent must track; events flow onto out until the loops exit.
func (s *Server) Bind(ctx context.Context, out chan<- Event) ([]agent.SocketHandle, error) {
	addr := fmt.Sprintf("%s:%d", s.bind, s.port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind tcp socket %s: %w", addr, err)
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("resolve udp addr %s: %w", addr, err)
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("bind udp socket %s: %w", addr, err)
	}

	tcpHandle := &tcpAcceptor{ln: ln}
	udpHandle := &udpListener{conn: udpConn}

	go serveTCP(ctx, ln, out, s.log)
	go serveUDP(ctx, udpConn, out, s.log)

	return []agent.SocketHandle{tcpHandle, udpHandle}, nil
}
