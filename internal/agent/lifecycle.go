package agent

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sentryd/sentryd/internal/config"
	"github.com/sentryd/sentryd/internal/socket"
)

// keepaliveTimerKey is prefixed with a NUL byte so it can never collide
// with a check name in the timer ledger — config keys come from YAML/JSON
// keys and can't contain one.
const keepaliveTimerKey = "\x00keepalive"

// handleEvent is the event loop's single dispatch point. Every loopEvent
// kind maps to exactly one handler; nothing here blocks.
func (a *Agent) handleEvent(ev loopEvent) {
	switch ev.kind {
	case eventControlStart:
		ev.reply <- a.handleStart()
	case eventControlPause:
		ev.reply <- a.handlePause()
	case eventControlResume:
		ev.reply <- a.handleResume()
	case eventControlStop:
		ev.reply <- a.handleStop()
	case eventKeepaliveTick:
		a.handleKeepaliveTick()
	case eventStandaloneTick:
		a.handleStandaloneTick(ev.standaloneCheck)
	case eventResumePoll:
		a.handleResumePoll()
	case eventDrainPoll:
		a.handleDrainPoll()
	case eventTransportMessage:
		a.handleTransportMessage(ev.transportPayload)
	case eventSocketMessage:
		a.handleSocketMessage(ev.socketEvent)
	case eventSubprocessComplete:
		a.handleSubprocessComplete(ev.subprocessRequest, ev.subprocessResult, ev.subprocessStart, ev.spanEnder)
	case eventExtensionComplete:
		a.handleExtensionComplete(ev.extensionRequest, ev.extensionOutput, ev.extensionStatus, ev.spanEnder)
	}
}

func (a *Agent) handleStart() error {
	if a.state != StateInitialized {
		return fmt.Errorf("start: agent is %s, not initialized", a.state)
	}

	_, span := a.tracer.StartSpan(a.ctx, "agent.start")
	defer span.End()

	handles, err := a.socketBind.Bind(a.ctx, a.socketEvents)
	if err != nil {
		a.log.BindFailure(fmt.Sprintf("%s:%d", a.settings.SocketBind(), a.settings.SocketPort()), err)
		return err
	}
	for _, h := range handles {
		a.sockets.add(h)
	}

	a.bootstrap()
	return nil
}

// bootstrap implements the shared core of start and resume: publish a
// keepalive immediately and arm its timer, subscribe every configured
// subscription, schedule every standalone check, then enter running.
func (a *Agent) bootstrap() {
	a.publishKeepalive()
	a.armKeepaliveTimer()

	a.bindings = resolveBindings(a.settings.Subscriptions(), a.fanoutFunnel)
	for _, b := range a.bindings {
		binding := b
		err := a.transport.Subscribe(a.ctx, binding.pipe, binding.pattern, binding.funnel, func(payload []byte) {
			a.postEvent(loopEvent{kind: eventTransportMessage, transportPayload: payload})
		})
		if err != nil {
			a.log.Warn("subscribe_error", "pipe", binding.pipe, "error", err.Error())
		}
	}

	a.scheduleStandaloneChecks()

	a.setState(StateRunning)
}

func (a *Agent) armKeepaliveTimer() {
	interval := config.KeepaliveInterval
	timer := time.AfterFunc(interval, func() {
		a.postEvent(loopEvent{kind: eventKeepaliveTick})
	})
	a.timers.set(keepaliveTimerKey, timer)
}

func (a *Agent) handleKeepaliveTick() {
	if !a.timers.active(keepaliveTimerKey) {
		return
	}
	a.publishKeepalive()
	a.armKeepaliveTimer()
}

func (a *Agent) scheduleStandaloneChecks() {
	nowMs := a.now().UnixMilli()
	for _, cd := range standaloneCandidates(a.settings, a.registry) {
		interval := standaloneInterval(cd, a.testMode)
		offset := splay(a.settings.ClientName(), cd.Name, int64(interval/time.Millisecond), nowMs)
		if a.testMode {
			offset = 0
		}
		name := cd.Name
		timer := time.AfterFunc(offset, func() {
			a.postEvent(loopEvent{kind: eventStandaloneTick, standaloneCheck: name})
		})
		a.timers.set(name, timer)
	}
}

// standaloneInterval returns the cadence for an already-selected standalone
// candidate. standaloneCandidates only ever returns checks with a positive
// interval, so cd.Interval here is always valid; testMode overrides it with
// a short fixed cadence so tests don't wait out real check intervals.
func standaloneInterval(cd CheckDefinition, testMode bool) time.Duration {
	if testMode {
		return config.TestModeInterval
	}
	return time.Duration(cd.Interval) * time.Second
}

func (a *Agent) handleStandaloneTick(name string) {
	if !a.timers.active(name) {
		return
	}

	cd, ok := a.settings.LocalCheck(name)
	if !ok {
		a.timers.cancel(name)
		return
	}

	req := CheckRequest{CheckDefinition: cd, Issued: a.now().Unix()}
	a.dispatch(req.Duplicate())

	interval := standaloneInterval(cd, a.testMode)
	timer := time.AfterFunc(interval, func() {
		a.postEvent(loopEvent{kind: eventStandaloneTick, standaloneCheck: name})
	})
	a.timers.set(name, timer)
}

func (a *Agent) handlePause() error {
	if a.state == StatePausing || a.state == StatePaused {
		return nil
	}
	a.setState(StatePausing)

	a.timers.clearAll()
	a.cancelResumeTimer()

	for _, b := range a.bindings {
		if err := a.transport.Unsubscribe(b.pipe); err != nil {
			a.log.Warn("unsubscribe_error", "pipe", b.pipe, "error", err.Error())
		}
	}
	a.bindings = nil

	a.setState(StatePaused)
	return nil
}

func (a *Agent) handleResume() error {
	if a.state != StatePaused {
		return fmt.Errorf("resume: agent is %s, not paused", a.state)
	}
	if a.transport.Connected() {
		a.bootstrap()
		return nil
	}
	a.armResumePoll()
	return nil
}

func (a *Agent) armResumePoll() {
	a.resumeTimer = time.AfterFunc(config.ResumePollInterval, func() {
		a.postEvent(loopEvent{kind: eventResumePoll})
	})
}

func (a *Agent) cancelResumeTimer() {
	if a.resumeTimer != nil {
		a.resumeTimer.Stop()
		a.resumeTimer = nil
	}
}

func (a *Agent) handleResumePoll() {
	if a.state != StatePaused {
		return
	}
	if a.transport.Connected() {
		a.bootstrap()
		return
	}
	a.armResumePoll()
}

func (a *Agent) handleStop() error {
	a.cancelResumeTimer()
	if a.state != StateStopped && a.state != StateStopping {
		_ = a.handlePause()
	}
	a.setState(StateStopping)
	a.armDrainPoll()
	return nil
}

func (a *Agent) armDrainPoll() {
	if a.inProgress.empty() {
		a.finishStop()
		return
	}
	time.AfterFunc(config.DrainPollInterval, func() {
		a.postEvent(loopEvent{kind: eventDrainPoll})
	})
}

func (a *Agent) handleDrainPoll() {
	if a.state != StateStopping {
		return
	}
	a.armDrainPoll()
}

func (a *Agent) finishStop() {
	_, span := a.tracer.StartSpan(a.ctx, "agent.stop")
	for _, err := range a.sockets.closeAll() {
		a.log.Warn("socket_close_error", "error", err.Error())
	}
	if err := a.transport.Close(); err != nil {
		a.log.Warn("transport_close_error", "error", err.Error())
	}
	span.End()
	a.setState(StateStopped)
	close(a.done)
}

func (a *Agent) handleTransportMessage(payload []byte) {
	req, err := decodeCheckRequest(payload)
	if err != nil {
		a.log.DecodeError(payload, err)
		a.metrics.DecodeError(a.ctx)
		return
	}
	a.dispatch(req)
}

func (a *Agent) handleSocketMessage(ev socket.Event) {
	switch ev.Kind {
	case socket.EventConnectionOpened:
		a.sockets.add(ev.Handle)
	case socket.EventConnectionClosed:
		a.sockets.remove(ev.Handle)
	case socket.EventPayload:
		err := a.publisher.Publish(a.ctx, json.RawMessage(ev.Payload))
		a.metrics.ResultPublished(a.ctx, err)
	}
}

// publishResult hands req to the result publisher, which wraps it in the
// {client, check, signature?} envelope and fire-and-forgets it to the
// results pipe. Publish failures are logged by the publisher itself,
// never retried.
func (a *Agent) publishResult(req CheckRequest) {
	err := a.publisher.Publish(a.ctx, req)
	a.metrics.ResultPublished(a.ctx, err)
}
