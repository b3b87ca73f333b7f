package store

import (
	"encoding/json"
	"fmt"
)

// deepMerge structurally merges patch into dst and returns the result.
// Object values merge per key; everything else replaces. A nil value in the
// patch removes the corresponding key from the result. This is the only way
// to express deletion at this layer, and it does not survive a later
// whole-value write that resupplies the key.
//
// Neither input is modified; merged objects are fresh maps.
func deepMerge(dst, patch any) any {
	patchMap, patchOK := patch.(map[string]any)
	dstMap, dstOK := dst.(map[string]any)
	if !patchOK || !dstOK {
		return patch
	}

	out := make(map[string]any, len(dstMap)+len(patchMap))
	for k, v := range dstMap {
		out[k] = v
	}
	for k, v := range patchMap {
		if v == nil {
			delete(out, k)
			continue
		}
		if existing, ok := out[k]; ok {
			out[k] = deepMerge(existing, v)
		} else if vm, isMap := v.(map[string]any); isMap {
			// No destination to merge into, but nested nil leaves still
			// mean deletion and must not be stored as literal nulls.
			out[k] = deepMerge(map[string]any{}, vm)
		} else {
			out[k] = v
		}
	}
	return out
}

// cloneValue deep-copies a decoded-JSON value so interned cache documents
// never escape by reference.
func cloneValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, val := range vv {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// normalize round-trips a value through JSON so the cache only ever holds
// plain decoded-JSON types, whatever the caller passed in.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return out, nil
}
