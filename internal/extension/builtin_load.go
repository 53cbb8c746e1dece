package extension

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/load"

	"github.com/sentryd/sentryd/internal/agent"
)

const (
	loadDefaultWarning  = 4.0
	loadDefaultCritical = 8.0
)

// LoadExtension reports 1-minute load average against warning/critical
// thresholds read from the check definition. Windows has no load average;
// gopsutil returns an error there, which this extension turns into an
// unknown result rather than propagating it, per the extension runner's
// error-handling contract. It satisfies agent.ExtensionRunner.
type LoadExtension struct{}

var _ agent.ExtensionRunner = (*LoadExtension)(nil)

func (e *LoadExtension) Run(ctx context.Context, req agent.CheckRequest, onComplete func(output string, status int)) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		if runtime.GOOS == "windows" {
			onComplete("load average unavailable on this platform", statusUnknown)
			return
		}
		onComplete(fmt.Sprintf("load check failed: %v", err), statusUnknown)
		return
	}

	warning, critical := thresholds(req, loadDefaultWarning, loadDefaultCritical)
	status := statusForPercent(avg.Load1, warning, critical)
	onComplete(fmt.Sprintf("load average %.2f", avg.Load1), status)
}
