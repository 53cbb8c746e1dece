package agent

import "encoding/json"

// MarshalJSON flattens the check definition, its execution fields, and any
// passthrough Extra keys into a single JSON object — "arbitrary additional
// keys pass through" per the check definition's data model.
func (r CheckRequest) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+10)
	for k, v := range r.Extra {
		out[k] = v
	}
	out["name"] = r.Name
	if r.Command != "" {
		out["command"] = r.Command
	}
	if r.Extension != "" {
		out["extension"] = r.Extension
	}
	if r.Interval != 0 {
		out["interval"] = r.Interval
	}
	if r.Timeout != 0 {
		out["timeout"] = r.Timeout
	}
	if r.Standalone {
		out["standalone"] = r.Standalone
	}
	if r.Handle != nil {
		out["handle"] = *r.Handle
	}
	if r.Issued != 0 {
		out["issued"] = r.Issued
	}
	if r.Executed != 0 {
		out["executed"] = r.Executed
	}
	if r.Duration != 0 {
		out["duration"] = r.Duration
	}
	out["output"] = r.Output
	out["status"] = r.Status
	return json.Marshal(out)
}

func boolPtr(b bool) *bool { return &b }
