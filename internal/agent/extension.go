package agent

// executeExtension implements §4.7. Extension runs are pushed onto their
// own goroutine rather than called in-loop: an extension is expected to
// return promptly, but running it off the event goroutine means a
// misbehaving one only leaves its own result pending instead of wedging
// keepalives and every other check behind it.
func (a *Agent) executeExtension(req CheckRequest, runner ExtensionRunner) {
	req.Executed = a.now().Unix()

	spanCtx, span := a.tracer.StartCheckSpan(a.ctx, req.Name, "extension")

	go func() {
		runner.Run(spanCtx, req, func(output string, status int) {
			a.postEvent(loopEvent{
				kind:             eventExtensionComplete,
				extensionRequest: req,
				extensionOutput:  output,
				extensionStatus:  status,
				spanEnder:        span.End,
			})
		})
	}()
}

// handleExtensionComplete finishes an extension check: fill in
// output/status and publish. Extensions are never tracked in the
// in-progress set — §4.7 imposes no dedup on them.
func (a *Agent) handleExtensionComplete(req CheckRequest, output string, status int, endSpan func()) {
	req.Output = output
	req.Status = status
	if endSpan != nil {
		endSpan()
	}
	a.publishResult(req)
}
