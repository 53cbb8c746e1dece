// Package config holds agent-wide default constants that are not
// settings-store values — buffer sizes and polling cadences dictated by
// the runtime model rather than by any one deployment.
package config

import "time"

const (
	// EventChannelBufferSize sizes the agent's single event-loop channel
	// (timer ticks, transport messages, socket messages, subprocess
	// completions, control requests) and the channel the socket listeners
	// deliver their events on.
	EventChannelBufferSize = 256

	// SocketAcceptBacklog is a backlog size for the local TCP listener.
	// Nothing references it: the socket server applies no accept bound of
	// its own, and its events queue on the socket-event channel sized by
	// EventChannelBufferSize.
	SocketAcceptBacklog = 64

	// KeepaliveInterval is the fixed keepalive cadence. Not configurable —
	// server-side liveness thresholds assume it.
	KeepaliveInterval = 20 * time.Second

	// ResumePollInterval is how often a paused agent checks whether the
	// transport has reconnected.
	ResumePollInterval = 1 * time.Second

	// DrainPollInterval is how often stop checks whether the in-progress
	// set has emptied.
	DrainPollInterval = 500 * time.Millisecond

	// TestModeInterval is the standalone check interval substituted when
	// the agent is run with splay/interval overrides enabled.
	TestModeInterval = 500 * time.Millisecond
)
