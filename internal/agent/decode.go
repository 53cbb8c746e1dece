package agent

import (
	"encoding/json"
	"fmt"
)

// decodeCheckRequest parses one inbound transport message into a
// CheckRequest. Unknown keys pass through to Extra, mirroring the
// settings store's own check-definition parsing so a request received
// over the wire and a check defined locally share one shape.
func decodeCheckRequest(raw []byte) (CheckRequest, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return CheckRequest{}, fmt.Errorf("decode check request: %w", err)
	}

	name, _ := fields["name"].(string)
	if name == "" {
		return CheckRequest{}, fmt.Errorf("decode check request: missing name")
	}

	req := CheckRequest{CheckDefinition: CheckDefinition{Name: name, Extra: map[string]any{}}}
	for k, v := range fields {
		switch k {
		case "name":
			// already consumed
		case "command":
			req.Command, _ = v.(string)
		case "extension":
			req.Extension, _ = v.(string)
		case "interval":
			req.Interval = toInt(v)
		case "timeout":
			req.Timeout = toFloat(v)
		case "standalone":
			req.Standalone, _ = v.(bool)
		case "handle":
			if b, ok := v.(bool); ok {
				req.Handle = &b
			}
		case "issued":
			req.Issued = int64(toFloat(v))
		default:
			req.Extra[k] = v
		}
	}
	return req, nil
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	default:
		return 0
	}
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return 0
	}
}
