// Package agent implements the monitoring agent's runtime: the
// concurrency fabric that interleaves periodic keepalives,
// subscription-driven inbound check requests, self-scheduled standalone
// checks, bounded subprocess execution, and two local socket listeners,
// under a pause/resume/stop lifecycle that drains in-flight work before
// exit.
//
// Everything the core touches outside itself — the transport, the
// settings tree, the extension registry, the redactor, the subprocess
// runner — is an interface. Concrete implementations live in sibling
// packages and are wired together in cmd/sentryd.
package agent

import (
	"context"

	"github.com/sentryd/sentryd/internal/transport"
)

// Transport is the message bus the agent publishes keepalives and results
// to, and subscribes for inbound check requests on. Alias of
// transport.Adapter kept local so the rest of this package can just say
// Transport, matching spec vocabulary.
type Transport = transport.Adapter

// DeliveryPattern re-exports transport.DeliveryPattern for the same reason.
type DeliveryPattern = transport.DeliveryPattern

const (
	PatternDirect     = transport.Direct
	PatternFanout     = transport.Fanout
	PatternRoundRobin = transport.RoundRobin
)

// Settings is a read-only nested configuration tree. The agent treats it
// as opaque apart from dotted-path lookups and the checks membership
// predicate.
type Settings interface {
	// ClientName is client.name.
	ClientName() string
	// Subscriptions is client.subscriptions.
	Subscriptions() []string
	// Signature is client.signature, or "" if unset.
	Signature() string
	// SafeMode is client.safe_mode.
	SafeMode() bool
	// RedactKeys is client.redact.
	RedactKeys() []string
	// SocketBind is client.socket.bind, defaulting to 127.0.0.1.
	SocketBind() string
	// SocketPort is client.socket.port, defaulting to 3030.
	SocketPort() int
	// ClientAttributes is the client settings section as a plain nested map,
	// used as-is for the keepalive payload and as the root of command-token
	// substitution.
	ClientAttributes() map[string]any
	// Lookup walks a dotted path (e.g. "db.name") against the settings tree
	// and returns the leaf value and whether it was found and non-nil.
	Lookup(dottedPath string) (any, bool)
	// LocalCheck returns the locally-defined check with the given name, if any.
	LocalCheck(name string) (CheckDefinition, bool)
}

// Redactor masks sensitive keys in a nested map, returning a copy.
// Pure function: redacting twice must equal redacting once.
type Redactor func(data map[string]any, sensitiveKeys []string) map[string]any

// SubprocessResult is what the subprocess runner hands back on completion.
type SubprocessResult struct {
	Output   string
	ExitCode int
}

// SubprocessRunner starts a shell command with a bound and reports the
// outcome asynchronously. Start must not block; onComplete runs on its own
// goroutine, never on the caller's.
type SubprocessRunner interface {
	Start(ctx context.Context, command string, timeout float64, onComplete func(SubprocessResult))
}

// ExtensionRunner is a single named in-process check. Run must not block
// for long — the core assumes extensions return promptly — and whatever
// error an extension raises is the extension's own responsibility; the
// core never wraps it.
type ExtensionRunner interface {
	Run(ctx context.Context, request CheckRequest, onComplete func(output string, status int))
}

// ExtensionRegistry looks up named in-process check runners.
type ExtensionRegistry interface {
	Lookup(name string) (ExtensionRunner, bool)
}

// CheckDefinition is a named check as configured, either locally or as
// received over the transport. Arbitrary additional keys pass through
// via Extra.
type CheckDefinition struct {
	Name       string
	Command    string
	Extension  string
	Interval   int
	Timeout    float64
	Standalone bool
	Handle     *bool
	Extra      map[string]any
}

// HasCommand reports whether this definition designates a command check.
func (c CheckDefinition) HasCommand() bool { return c.Command != "" }

// Merge overlays the non-zero fields of local onto c ("local wins"), per §4.5.
func (c CheckDefinition) Merge(local CheckDefinition) CheckDefinition {
	merged := c
	if local.Command != "" {
		merged.Command = local.Command
	}
	if local.Extension != "" {
		merged.Extension = local.Extension
	}
	if local.Interval != 0 {
		merged.Interval = local.Interval
	}
	if local.Timeout != 0 {
		merged.Timeout = local.Timeout
	}
	if local.Standalone {
		merged.Standalone = local.Standalone
	}
	if local.Handle != nil {
		merged.Handle = local.Handle
	}
	if len(local.Extra) > 0 {
		extra := make(map[string]any, len(merged.Extra)+len(local.Extra))
		for k, v := range merged.Extra {
			extra[k] = v
		}
		for k, v := range local.Extra {
			extra[k] = v
		}
		merged.Extra = extra
	}
	return merged
}

// CheckRequest is a check invocation in flight, either received over the
// transport or self-issued by the standalone scheduler.
type CheckRequest struct {
	CheckDefinition
	Issued   int64
	Executed int64
	Duration float64
	Output   string
	Status   int
	handled  bool
}

// Duplicate returns a copy of the request suitable for a fresh dispatch
// (the standalone scheduler issues one of these per period).
func (r CheckRequest) Duplicate() CheckRequest {
	dup := r
	extra := make(map[string]any, len(r.Extra))
	for k, v := range r.Extra {
		extra[k] = v
	}
	dup.Extra = extra
	return dup
}

// Status codes for the check result envelope's status field, per §3.
const (
	statusOK       = 0
	statusWarning  = 1
	statusCritical = 2
	statusUnknown  = 3
)

// SocketHandleKind distinguishes the two kinds of handle the socket
// ledger holds, since stop drains them differently: acceptors stop
// listening for new connections, open connections are closed outright.
type SocketHandleKind int

const (
	AcceptorHandle SocketHandleKind = iota
	ConnectionHandle
)

// SocketHandle is anything the socket ledger tracks: a bound
// listener/acceptor or a live connection.
type SocketHandle interface {
	Kind() SocketHandleKind
	Close() error
}

// State is the agent lifecycle state, per §3.
type State string

const (
	StateInitialized State = "initialized"
	StateRunning     State = "running"
	StatePausing     State = "pausing"
	StatePaused      State = "paused"
	StateStopping    State = "stopping"
	StateStopped     State = "stopped"
)
