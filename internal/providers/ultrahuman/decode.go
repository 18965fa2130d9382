package ultrahuman

import (
	"time"
)

// Decoders for the dual-shape fields the Ultrahuman API mixes freely:
// bare numbers vs {value, unit} objects, epoch seconds vs ISO-8601 strings,
// values at the item top level vs nested under "object". Each decoder tries
// the accepted shapes in a fixed preference order and reports failure with
// ok=false instead of raising.

// numberValue extracts a numeric value from a bare JSON number or from a
// {value, unit} object. Unit strings in the source are ignored.
func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case map[string]any:
		if inner, ok := n["value"]; ok {
			return numberValue(inner)
		}
	}
	return 0, false
}

// intScore reads a nullable integer score field. Absent or undecodable
// fields resolve to nil, which means "not measured", not zero.
func intScore(raw map[string]any, key string) *int {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil
	}
	n, ok := numberValue(v)
	if !ok {
		return nil
	}
	score := int(n)
	return &score
}

// floatField reads a nullable float field accepting both value shapes.
func floatField(raw map[string]any, key string) *float64 {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil
	}
	n, ok := numberValue(v)
	if !ok {
		return nil
	}
	return &n
}

// intField reads an integer field, defaulting to 0 when absent.
func intField(raw map[string]any, key string) int {
	if n, ok := numberValue(raw[key]); ok {
		return int(n)
	}
	return 0
}

// epochTime converts an epoch-seconds number to a UTC instant.
func epochTime(v any) *time.Time {
	n, ok := numberValue(v)
	if !ok {
		return nil
	}
	t := time.Unix(int64(n), 0).UTC()
	return &t
}

// isoTime parses an ISO-8601 timestamp string to a UTC instant.
func isoTime(v any) *time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// timeField resolves a timestamp preferring the epoch-seconds key, then the
// ISO-string key, then nil.
func timeField(raw map[string]any, epochKey, isoKey string) *time.Time {
	if v, ok := raw[epochKey]; ok && v != nil {
		if t := epochTime(v); t != nil {
			return t
		}
	}
	if v, ok := raw[isoKey]; ok && v != nil {
		if t := isoTime(v); t != nil {
			return t
		}
	}
	return nil
}

// stringField returns the first non-empty string among the given keys.
func stringField(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// boolField reads a boolean field, defaulting to false.
func boolField(raw map[string]any, key string) bool {
	b, _ := raw[key].(bool)
	return b
}

// objectOf returns the item's nested "object" payload when present, else the
// item itself. The API wraps metric payloads under "object"; test fixtures
// and older exports do not.
func objectOf(item map[string]any) map[string]any {
	if obj, ok := item["object"].(map[string]any); ok {
		return obj
	}
	return item
}

// valuesOf returns the item's sample sequence, looking at the top-level
// "values" first and then under "object.values".
func valuesOf(item map[string]any) []map[string]any {
	raw, ok := item["values"].([]any)
	if !ok {
		if obj, isMap := item["object"].(map[string]any); isMap {
			raw, ok = obj["values"].([]any)
		}
	}
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if m, isMap := v.(map[string]any); isMap {
			out = append(out, m)
		}
	}
	return out
}

// entriesOf decodes a sequence-of-objects field such as quick_metrics,
// sleep_stages or a daily-summary value array.
func entriesOf(raw map[string]any, key string) []map[string]any {
	arr, ok := raw[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, v := range arr {
		if m, isMap := v.(map[string]any); isMap {
			out = append(out, m)
		}
	}
	return out
}
