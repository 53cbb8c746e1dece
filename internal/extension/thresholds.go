package extension

import "github.com/sentryd/sentryd/internal/agent"

// statusOK, statusWarning, statusCritical, statusUnknown are the four
// check result status codes the agent's envelope understands.
const (
	statusOK       = 0
	statusWarning  = 1
	statusCritical = 2
	statusUnknown  = 3
)

// thresholds reads warning/critical percent thresholds from a check
// request's pass-through fields, falling back to sane defaults when a
// check definition omits either one.
func thresholds(req agent.CheckRequest, defaultWarning, defaultCritical float64) (warning, critical float64) {
	warning, critical = defaultWarning, defaultCritical
	if v, ok := req.Extra["warning"]; ok {
		if f, ok := toFloat(v); ok {
			warning = f
		}
	}
	if v, ok := req.Extra["critical"]; ok {
		if f, ok := toFloat(v); ok {
			critical = f
		}
	}
	return warning, critical
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

// statusForPercent classifies a percent-busy/percent-used reading against
// warning/critical thresholds.
func statusForPercent(percent, warning, critical float64) int {
	switch {
	case percent >= critical:
		return statusCritical
	case percent >= warning:
		return statusWarning
	default:
		return statusOK
	}
}
