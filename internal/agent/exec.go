package agent

import (
	"math"
	"strings"
	"time"

	"github.com/sentryd/sentryd/internal/template"
)

const unmatchedTokensPrefix = "Unmatched command tokens: "

// executeCommand implements §4.6: dedup against the in-progress set,
// substitute command tokens against the client attribute tree, reject with a
// synthetic result on any unmatched token, then hand the resolved
// command to the subprocess runner. The completion callback runs on its
// own goroutine and must hop back onto the event loop rather than touch
// agent state directly.
func (a *Agent) executeCommand(req CheckRequest) {
	if !a.inProgress.mark(req.Name) {
		a.log.DuplicateCheck(req.Name)
		return
	}

	resolved, unmatched := template.Substitute(req.Command, a.lookupToken)
	if len(unmatched) > 0 {
		a.inProgress.clear(req.Name)
		a.publishSynthetic(req, unmatchedTokensPrefix+strings.Join(unmatched, ", "))
		return
	}

	req.Command = resolved
	req.Executed = a.now().Unix()
	start := a.now()

	spanCtx, span := a.tracer.StartCheckSpan(a.ctx, req.Name, "command")

	a.subprocess.Start(spanCtx, resolved, req.Timeout, func(result SubprocessResult) {
		a.postEvent(loopEvent{
			kind:              eventSubprocessComplete,
			subprocessRequest: req,
			subprocessResult:  result,
			subprocessStart:   start,
			spanEnder:         span.End,
		})
	})
}

// lookupToken resolves a token's dotted path against the client attribute
// tree (Settings.ClientAttributes); a missing or nil leaf is unresolved.
func (a *Agent) lookupToken(dottedPath string) (any, bool) {
	var cur any = a.settings.ClientAttributes()
	for _, part := range strings.Split(dottedPath, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// handleSubprocessComplete finishes a command check: format duration to
// three decimal places, fill in output/status, publish, then clear the
// in-progress entry so a later request for the same check can proceed.
func (a *Agent) handleSubprocessComplete(req CheckRequest, result SubprocessResult, start time.Time, endSpan func()) {
	elapsed := a.now().Sub(start).Round(time.Millisecond)
	req.Duration = math.Round(elapsed.Seconds()*1000) / 1000
	req.Output = result.Output
	req.Status = result.ExitCode

	a.metrics.CheckDuration(a.ctx, req.Name, req.Status, elapsed.Seconds())
	if endSpan != nil {
		endSpan()
	}
	a.publishResult(req)
	a.inProgress.clear(req.Name)
}
