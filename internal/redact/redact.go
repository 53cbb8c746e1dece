// Package redact implements the pure redaction function the keepalive
// engine applies to the client settings block before publishing it.
package redact

const mask = "MASKED"

// Redact returns a copy of data with every key in sensitiveKeys (and any
// same-named key found anywhere in nested maps) replaced by a mask
// string. The input is never mutated. Redacting twice equals redacting
// once: masked values are strings, and a string is never itself a map, so
// a second pass finds nothing left to mask under an already-masked key.
func Redact(data map[string]any, sensitiveKeys []string) map[string]any {
	if len(sensitiveKeys) == 0 {
		return copyMap(data)
	}
	sensitive := make(map[string]struct{}, len(sensitiveKeys))
	for _, k := range sensitiveKeys {
		sensitive[k] = struct{}{}
	}
	return redactMap(data, sensitive)
}

func redactMap(data map[string]any, sensitive map[string]struct{}) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if _, masked := sensitive[k]; masked {
			out[k] = mask
			continue
		}
		out[k] = redactValue(v, sensitive)
	}
	return out
}

func redactValue(v any, sensitive map[string]struct{}) any {
	switch typed := v.(type) {
	case map[string]any:
		return redactMap(typed, sensitive)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = redactValue(item, sensitive)
		}
		return out
	default:
		return v
	}
}

func copyMap(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
