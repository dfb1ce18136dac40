package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// normalize round-trips a body through JSON so that every backend sees the
// same value shapes (float64 numbers, map[string]any objects, []any arrays).
func normalize(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// applyPatch merges a (normalized) patch into a deep copy of data. A key
// like "a.b.c" creates intermediate objects as needed and replaces any
// non-object value found on the way.
func applyPatch(data, patch map[string]any) (map[string]any, error) {
	out, err := normalize(data)
	if err != nil {
		return nil, err
	}
	for key, val := range patch {
		if key == "" {
			return nil, fmt.Errorf("empty field name in patch")
		}
		nv, err := normalizeValue(val)
		if err != nil {
			return nil, fmt.Errorf("encode field %s: %w", key, err)
		}
		parts := strings.Split(key, ".")
		node := out
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[p] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = nv
	}
	return out, nil
}

func matches(data map[string]any, where []Filter) bool {
	for _, f := range where {
		want, err := normalizeValue(f.Value)
		if err != nil {
			return false
		}
		got, ok := data[f.Field]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// typeRank mirrors the jsonb btree ordering: null < string < number < bool
// < array < object.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case string:
		return 1
	case float64:
		return 2
	case bool:
		return 3
	case []any:
		return 4
	default:
		return 5
	}
}

// compareField orders two bodies by field. A missing field sorts after any
// present value, the way SQL NULL does in an ascending ORDER BY.
func compareField(a, b map[string]any, field string) int {
	av, aok := a[field]
	bv, bok := b[field]
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	}
	ra, rb := typeRank(av), typeRank(bv)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch x := av.(type) {
	case string:
		return strings.Compare(x, bv.(string))
	case float64:
		y := bv.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case bool:
		y := bv.(bool)
		if x == y {
			return 0
		}
		if !x {
			return -1
		}
		return 1
	}
	return 0
}
