package extension

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/sentryd/sentryd/internal/agent"
)

const (
	memoryDefaultWarning  = 85.0
	memoryDefaultCritical = 95.0
)

// MemoryExtension reports percent used-memory against warning/critical
// thresholds read from the check definition. It satisfies
// agent.ExtensionRunner.
type MemoryExtension struct{}

var _ agent.ExtensionRunner = (*MemoryExtension)(nil)

func (e *MemoryExtension) Run(ctx context.Context, req agent.CheckRequest, onComplete func(output string, status int)) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		onComplete(fmt.Sprintf("memory check failed: %v", err), statusUnknown)
		return
	}

	warning, critical := thresholds(req, memoryDefaultWarning, memoryDefaultCritical)
	status := statusForPercent(vm.UsedPercent, warning, critical)
	onComplete(fmt.Sprintf("memory usage %.1f%%", vm.UsedPercent), status)
}
