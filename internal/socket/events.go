// Package socket implements the agent's two always-on local listeners —
// TCP and UDP — that accept externally-produced result payloads and feed
// them onto the agent's single event loop as socket-message events.
package socket

import "github.com/sentryd/sentryd/internal/agent"

// EventKind distinguishes the three kinds of event the socket layer can
// deliver onto the agent's event loop.
type EventKind int

const (
	// EventConnectionOpened reports a newly accepted TCP connection; the
	// agent adds Handle to its socket ledger.
	EventConnectionOpened EventKind = iota
	// EventConnectionClosed reports that a TCP connection ended; the
	// agent removes Handle from its socket ledger.
	EventConnectionClosed
	// EventPayload carries one externally-submitted result payload,
	// ready to hand to the result publisher unparsed.
	EventPayload
)

// Event is one occurrence on a socket listener, tagged for the agent's
// event loop the way transport messages and timer ticks are.
type Event struct {
	Kind    EventKind
	Handle  agent.SocketHandle
	Payload []byte
}
