// Package subsonic implements the Subsonic-compatible request layer:
// per-request context and authentication, endpoint dispatch, a generic
// response tree with XML/JSON serializers, and the numeric error
// taxonomy.
//
// The response side builds a tree, then serializes it. A Node never
// knows its own tag name; the key it is filed under by its parent
// supplies that.
package subsonic

import "sort"

// ValueKind tags the Value variants: a node
// attribute or primitive child value is exactly one of these.
type ValueKind int

const (
	KindString ValueKind = iota
	KindBool
	KindInt
	KindFloat
)

// Value is a tagged union over the four attribute/primitive value
// kinds the response tree supports.
type Value struct {
	kind ValueKind
	s    string
	b    bool
	i    int64
	f    float64
}

func StringValue(s string) Value { return Value{kind: KindString, s: s} }
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

type childKind int

const (
	singularKind childKind = iota
	arrayNodeKind
	arrayPrimKind
)

type childSlot struct {
	key  string
	kind childKind
}

// Node is a rooted tree node: an attribute map, an optional primitive
// value, and three kinds of children. order records the
// sequence in which distinct child keys were first touched; the XML
// serializer emits children in that order, while the JSON serializer
// sorts attribute and child keys together alphabetically. Attribute
// keys are always emitted alphabetically.
type Node struct {
	attrs map[string]Value
	value *Value

	order      []childSlot
	singular   map[string]*Node
	arrayNodes map[string][]*Node
	arrayPrims map[string][]Value
}

// NewNode allocates an empty response node on the heap; the GC
// amortizes response-sized trees well enough that no arena is needed.
func NewNode() *Node {
	return &Node{
		attrs:      map[string]Value{},
		singular:   map[string]*Node{},
		arrayNodes: map[string][]*Node{},
		arrayPrims: map[string][]Value{},
	}
}

func (n *Node) Attr(key string, v Value) *Node {
	n.attrs[key] = v
	return n
}

func (n *Node) AttrString(key, v string) *Node { return n.Attr(key, StringValue(v)) }
func (n *Node) AttrBool(key string, v bool) *Node { return n.Attr(key, BoolValue(v)) }
func (n *Node) AttrInt(key string, v int64) *Node { return n.Attr(key, IntValue(v)) }
func (n *Node) AttrFloat(key string, v float64) *Node { return n.Attr(key, FloatValue(v)) }

// AttrStringOpt only sets the attribute when s is non-empty, the
// pattern every "...,omitempty" optional field in the endpoint
// handlers uses.
func (n *Node) AttrStringOpt(key, s string) *Node {
	if s != "" {
		n.Attr(key, StringValue(s))
	}
	return n
}

func (n *Node) SetValue(v Value) { n.value = &v }

// Child returns the node's singular keyed child under key, creating it
// on first access.
func (n *Node) Child(key string) *Node {
	if existing, ok := n.singular[key]; ok {
		return existing
	}
	child := NewNode()
	n.singular[key] = child
	n.order = append(n.order, childSlot{key, singularKind})
	return child
}

// AddArrayItem appends a new node to the keyed array of children under
// key and returns it for the caller to populate.
func (n *Node) AddArrayItem(key string) *Node {
	if _, ok := n.arrayNodes[key]; !ok {
		n.order = append(n.order, childSlot{key, arrayNodeKind})
	}
	child := NewNode()
	n.arrayNodes[key] = append(n.arrayNodes[key], child)
	return child
}

// AddPrimitiveArrayItem appends v to the keyed array of primitive
// values under key.
func (n *Node) AddPrimitiveArrayItem(key string, v Value) {
	if _, ok := n.arrayPrims[key]; !ok {
		n.order = append(n.order, childSlot{key, arrayPrimKind})
	}
	n.arrayPrims[key] = append(n.arrayPrims[key], v)
}

// sortedAttrKeys returns attrs' keys alphabetically, the order both
// serializers use for attribute/shared-object-key output.
func (n *Node) sortedAttrKeys() []string {
	keys := make([]string, 0, len(n.attrs))
	for k := range n.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Response is the rooted response tree. Root's key is always
// "subsonic-response".
type Response struct {
	Root *Node
}

// NewResponse builds the root node with the fixed attribute set every
// response carries: status, the protocol version reported to this
// client, type=lms, the server's own release version, and (when this
// client has OpenSubsonic extensions enabled) openSubsonic=true.
func NewResponse(status, protocolVersion, serverVersion string, openSubsonic bool) *Response {
	root := NewNode()
	root.AttrString("status", status)
	root.AttrString("version", protocolVersion)
	root.AttrString("type", "lms")
	root.AttrString("serverVersion", serverVersion)
	if openSubsonic {
		root.AttrBool("openSubsonic", true)
	}
	return &Response{Root: root}
}

// ApplyError rewrites resp in place into the failure shape: status
// flips to "failed" and an <error> child carries the numeric code plus
// message. Every other attribute/child already written
// to resp stays as-is, matching the wire contract that an error
// response is otherwise a normal response with an error node added.
func (resp *Response) ApplyError(apiErr *APIError) {
	resp.Root.AttrString("status", "failed")
	errNode := resp.Root.Child("error")
	errNode.AttrInt("code", int64(apiErr.Code))
	errNode.AttrString("message", apiErr.Message)
}
