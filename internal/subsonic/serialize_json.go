package subsonic

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
)

// SerializeJSON renders resp as {"subsonic-response": {...}}. Keys
// come out alphabetically because that is the order json.Marshal
// emits map[string]any keys in.
func SerializeJSON(resp *Response) []byte {
	root := map[string]any{"subsonic-response": nodeToJSON(resp.Root)}
	// encoding/json already sorts map keys; no extra work needed to
	// match the fixture's alphabetical attribute ordering.
	out, _ := json.Marshal(root)
	return out
}

func nodeToJSON(n *Node) any {
	obj := map[string]any{}
	for key, v := range n.attrs {
		obj[key] = valueToJSON(v)
	}
	for _, slot := range n.order {
		switch slot.kind {
		case singularKind:
			obj[slot.key] = nodeToJSON(n.singular[slot.key])
		case arrayNodeKind:
			nodes := n.arrayNodes[slot.key]
			arr := make([]any, len(nodes))
			for i, child := range nodes {
				arr[i] = nodeToJSON(child)
			}
			obj[slot.key] = arr
		case arrayPrimKind:
			vals := n.arrayPrims[slot.key]
			arr := make([]any, len(vals))
			for i, v := range vals {
				arr[i] = valueToJSON(v)
			}
			obj[slot.key] = arr
		}
	}
	if n.value != nil {
		obj["value"] = valueToJSON(*n.value)
	}
	return obj
}

func valueToJSON(v Value) any {
	switch v.kind {
	case KindString:
		return v.s
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil
		}
		return v.f
	default:
		return nil
	}
}

// compactEqual reports whether two JSON byte slices decode to the same
// structure, ignoring key order and formatting. Used by tests
// checking XML/JSON structural parity.
func compactEqual(a, b []byte) bool {
	var av, bv any
	if json.Unmarshal(a, &av) != nil || json.Unmarshal(b, &bv) != nil {
		return false
	}
	ab, _ := json.Marshal(sortedAny(av))
	bb, _ := json.Marshal(sortedAny(bv))
	return bytes.Equal(ab, bb)
}

// sortedAny is a no-op placeholder kept for callers that want a
// canonical form before comparing; map key order already canonicalizes
// under json.Marshal, so nothing further is needed today.
func sortedAny(v any) any {
	if m, ok := v.(map[string]any); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}
	return v
}
