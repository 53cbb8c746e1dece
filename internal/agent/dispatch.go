package agent

import "strings"

// binding is one subscription's resolved transport coordinates.
type binding struct {
	subscription string
	pattern      DeliveryPattern
	pipe         string
	funnel       string
}

// resolveBindings computes the transport bindings for every configured
// subscription, per §4.3's prefix rule. fanoutFunnel is the process-wide
// funnel name used for every non-direct/roundrobin subscription.
func resolveBindings(subscriptions []string, fanoutFunnel string) []binding {
	bindings := make([]binding, 0, len(subscriptions))
	for _, sub := range subscriptions {
		switch {
		case strings.HasPrefix(sub, "direct:"), strings.HasPrefix(sub, "roundrobin:"):
			bindings = append(bindings, binding{
				subscription: sub,
				pattern:      PatternDirect,
				pipe:         sub,
				funnel:       sub,
			})
		default:
			bindings = append(bindings, binding{
				subscription: sub,
				pattern:      PatternFanout,
				pipe:         sub,
				funnel:       fanoutFunnel,
			})
		}
	}
	return bindings
}

const safeModeRejectionOutput = "Check is not locally defined (safe mode)"

// dispatch implements §4.5: merge local fields over the request, then
// branch on command vs. extension. It never returns an error — every
// failure path either publishes a synthetic result or drops with a log
// entry, per the error-handling design.
func (a *Agent) dispatch(req CheckRequest) {
	if local, ok := a.settings.LocalCheck(req.Name); ok {
		req.CheckDefinition = req.CheckDefinition.Merge(local)
	}

	if req.HasCommand() {
		_, hasLocal := a.settings.LocalCheck(req.Name)
		if a.settings.SafeMode() && !hasLocal {
			a.publishSynthetic(req, safeModeRejectionOutput)
			return
		}
		a.executeCommand(req)
		return
	}

	extName := req.Extension
	if extName == "" {
		extName = req.Name
	}
	runner, ok := a.registry.Lookup(extName)
	if !ok {
		a.log.UnknownExtension(extName)
		return
	}
	a.executeExtension(req, runner)
}

// publishSynthetic builds and publishes a status-3, handle-false result
// without ever spawning a command — used by the safe-mode and
// unmatched-token rejection paths, the two cases §9's open question
// distinguishes from the silently-dropped unknown-extension case.
func (a *Agent) publishSynthetic(req CheckRequest, output string) {
	req.Output = output
	req.Status = statusUnknown
	req.Handle = boolPtr(false)
	req.Executed = a.now().Unix()
	a.publishResult(req)
}
