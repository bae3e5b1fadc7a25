package redact

import (
	"bytes"
	"encoding/json"
)

// maxDepth bounds recursion into tool payloads. Deeper values are returned
// unchanged.
const maxDepth = 32

// walkAny returns a copy of a decoded JSON value with fn applied to every
// string leaf. Maps and slices are copied, never mutated.
func walkAny(v any, fn func(string) string) any {
	var visit func(v any, depth int) any
	visit = func(v any, depth int) any {
		if depth > maxDepth {
			return v
		}
		switch val := v.(type) {
		case string:
			return fn(val)
		case map[string]any:
			out := make(map[string]any, len(val))
			for k, child := range val {
				out[k] = visit(child, depth+1)
			}
			return out
		case []any:
			out := make([]any, len(val))
			for i, child := range val {
				out[i] = visit(child, depth+1)
			}
			return out
		}
		return v
	}
	return visit(v, 0)
}

// walkRaw applies fn to every string inside an undecoded payload such as
// toolUseResult or an image block. A payload fn leaves alone is returned
// byte for byte; otherwise it is re-encoded with numbers kept verbatim.
func walkRaw(raw json.RawMessage, fn func(string) string) (json.RawMessage, error) {
	if len(raw) == 0 {
		return raw, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	changed := false
	out := walkAny(v, func(s string) string {
		r := fn(s)
		if r != s {
			changed = true
		}
		return r
	})
	if !changed {
		return raw, nil
	}
	return json.Marshal(out)
}
