package extension

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/sentryd/sentryd/internal/agent"
)

const (
	cpuDefaultWarning  = 80.0
	cpuDefaultCritical = 95.0
	cpuSampleWindow    = 200 * time.Millisecond
)

// CPUExtension reports percent-busy CPU time against warning/critical
// thresholds read from the check definition. It satisfies
// agent.ExtensionRunner.
type CPUExtension struct{}

var _ agent.ExtensionRunner = (*CPUExtension)(nil)

func (e *CPUExtension) Run(ctx context.Context, req agent.CheckRequest, onComplete func(output string, status int)) {
	percentages, err := cpu.PercentWithContext(ctx, cpuSampleWindow, false)
	if err != nil || len(percentages) == 0 {
		onComplete(fmt.Sprintf("cpu check failed: %v", err), statusUnknown)
		return
	}

	warning, critical := thresholds(req, cpuDefaultWarning, cpuDefaultCritical)
	percent := percentages[0]
	status := statusForPercent(percent, warning, critical)
	onComplete(fmt.Sprintf("CPU usage %.1f%%", percent), status)
}
