package agent

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sentryd/sentryd/internal/config"
	"github.com/sentryd/sentryd/internal/events"
	"github.com/sentryd/sentryd/internal/otelx"
	"github.com/sentryd/sentryd/internal/result"
	"github.com/sentryd/sentryd/internal/socket"
)

// SocketBinder binds the agent's local listeners and reports events onto
// out until ctx is done. Satisfied by *socket.Server; abstracted so the
// core never imports a concrete transport mechanism.
type SocketBinder interface {
	Bind(ctx context.Context, out chan<- socket.Event) ([]SocketHandle, error)
}

// Config bundles every collaborator NewAgent needs. TestMode and Clock are
// optional (Clock defaults to time.Now), and a nil Log, Tracer or Metrics
// is replaced by its no-op implementation; everything else is required.
type Config struct {
	Settings     Settings
	Transport    Transport
	Registry     ExtensionRegistry
	Subprocess   SubprocessRunner
	SocketBinder SocketBinder
	Publisher    *result.Publisher
	Redactor     Redactor
	Log          *events.Logger
	Tracer       *otelx.Tracer
	Metrics      *otelx.Metrics
	Version      string
	TestMode     bool
	Clock        func() time.Time
}

type eventKind int

const (
	eventControlStart eventKind = iota
	eventControlPause
	eventControlResume
	eventControlStop
	eventKeepaliveTick
	eventStandaloneTick
	eventResumePoll
	eventDrainPoll
	eventTransportMessage
	eventSocketMessage
	eventSubprocessComplete
	eventExtensionComplete
)

// loopEvent is the single tagged-union message type the event loop
// consumes — every external trigger (timer, transport, socket,
// subprocess completion, control call) funnels through it, per §5.
type loopEvent struct {
	kind  eventKind
	reply chan error

	standaloneCheck string

	transportPayload []byte

	socketEvent socket.Event

	subprocessRequest CheckRequest
	subprocessResult  SubprocessResult
	subprocessStart   time.Time

	extensionRequest CheckRequest
	extensionOutput  string
	extensionStatus  int

	spanEnder func()
}

// Agent is the monitoring agent runtime. A single goroutine (run) owns
// every piece of mutable state below the collaborator fields; all other
// access goes through loopEvent.
type Agent struct {
	settings   Settings
	transport  Transport
	registry   ExtensionRegistry
	subprocess SubprocessRunner
	socketBind SocketBinder
	publisher  *result.Publisher
	redactor   Redactor
	log        *events.Logger
	tracer     *otelx.Tracer
	metrics    *otelx.Metrics
	version    string
	testMode   bool
	clock      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	events       chan loopEvent
	socketEvents chan socket.Event
	done         chan struct{}

	fanoutFunnel string

	stateSnapshot atomic.Value

	// loop-owned state; touched only inside run().
	state       State
	inProgress  *inProgressSet
	timers      *timerLedger
	sockets     *socketLedger
	bindings    []binding
	resumeTimer *time.Timer
}

// NewAgent wires cfg into a ready-to-Start agent and launches its event
// loop. The loop sits idle in state "initialized" until Start is called.
func NewAgent(cfg Config) *Agent {
	if cfg.Log == nil {
		cfg.Log = events.Noop()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otelx.NoopTracer()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = otelx.NoopMetrics()
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &Agent{
		settings:   cfg.Settings,
		transport:  cfg.Transport,
		registry:   cfg.Registry,
		subprocess: cfg.Subprocess,
		socketBind: cfg.SocketBinder,
		publisher:  cfg.Publisher,
		redactor:   cfg.Redactor,
		log:        cfg.Log,
		tracer:     cfg.Tracer,
		metrics:    cfg.Metrics,
		version:    cfg.Version,
		testMode:   cfg.TestMode,
		clock:      cfg.Clock,

		ctx:    ctx,
		cancel: cancel,

		events:       make(chan loopEvent, config.EventChannelBufferSize),
		socketEvents: make(chan socket.Event, config.EventChannelBufferSize),
		done:         make(chan struct{}),

		state:      StateInitialized,
		inProgress: newInProgressSet(),
		timers:     newTimerLedger(),
		sockets:    newSocketLedger(),
	}

	a.stateSnapshot.Store(StateInitialized)
	a.fanoutFunnel = fmt.Sprintf("%s-%s-%d", a.settings.ClientName(), a.version, a.now().Unix())

	go a.forwardSocketEvents()
	go a.run()

	return a
}

// postEvent is the only channel send any goroutine other than run may
// perform. While the buffer is full it blocks; once the agent's context is
// cancelled (after Stop) it drops the event and returns, so a sender
// (subprocess completion, transport delivery) is never left waiting on a
// stopped agent.
func (a *Agent) postEvent(ev loopEvent) {
	select {
	case a.events <- ev:
	case <-a.ctx.Done():
	}
}

func (a *Agent) forwardSocketEvents() {
	for {
		select {
		case ev := <-a.socketEvents:
			a.postEvent(loopEvent{kind: eventSocketMessage, socketEvent: ev})
		case <-a.ctx.Done():
			return
		}
	}
}

// sendControl posts a control event and blocks for its reply, giving the
// public lifecycle methods synchronous, serialized semantics even though
// every state mutation happens on the loop goroutine.
func (a *Agent) sendControl(kind eventKind) error {
	reply := make(chan error, 1)
	a.postEvent(loopEvent{kind: kind, reply: reply})
	select {
	case err := <-reply:
		return err
	case <-a.ctx.Done():
		return a.ctx.Err()
	}
}

// Start binds the local sockets and bootstraps the agent: subscribes to
// every configured subscription, schedules standalone checks, and
// publishes the first keepalive. Valid only from state "initialized".
func (a *Agent) Start() error {
	return a.sendControl(eventControlStart)
}

// Pause stops accepting new work — timers cleared, subscriptions
// dropped — without touching in-flight command executions. Idempotent
// when already pausing or paused.
func (a *Agent) Pause() error {
	return a.sendControl(eventControlPause)
}

// Resume re-bootstraps once the transport reports connected, polling
// every config.ResumePollInterval in the meantime. Valid only from
// state "paused".
func (a *Agent) Resume() error {
	return a.sendControl(eventControlResume)
}

// Stop pauses, then drains the in-progress set before closing the
// sockets and transport. Blocks until the agent reaches state
// "stopped".
func (a *Agent) Stop() error {
	err := a.sendControl(eventControlStop)
	<-a.done
	a.cancel()
	return err
}

// WatchSignals stops the agent on SIGINT/SIGTERM. Intended to be called
// once from cmd/sentryd's main.
func (a *Agent) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			a.log.Signal(sig.String())
			_ = a.Stop()
		case <-a.ctx.Done():
		}
	}()
}

// Done returns a channel closed once the agent reaches state "stopped".
// cmd/sentryd blocks on it after arming WatchSignals.
func (a *Agent) Done() <-chan struct{} {
	return a.done
}

// State reports the agent's current lifecycle state. Safe to call from
// any goroutine: the loop publishes every transition into stateSnapshot
// before acting on it, so callers never block on the event channel just
// to read a status.
func (a *Agent) State() State {
	v, _ := a.stateSnapshot.Load().(State)
	if v == "" {
		return StateInitialized
	}
	return v
}

func (a *Agent) setState(s State) {
	if a.state != s {
		a.log.StateTransition(string(a.state), string(s))
	}
	a.state = s
	a.stateSnapshot.Store(s)
}

func (a *Agent) run() {
	for {
		select {
		case ev := <-a.events:
			a.handleEvent(ev)
			if a.state == StateStopped {
				return
			}
		case <-a.ctx.Done():
			return
		}
	}
}
