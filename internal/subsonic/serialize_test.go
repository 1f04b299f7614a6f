package subsonic

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strconv"
	"strings"
	"testing"
)

func TestNewResponseEmptyFixture(t *testing.T) {
	resp := NewResponse("ok", "1.16.0", "v3.72.0", true)

	wantJSON := `{"subsonic-response":{"openSubsonic":true,"serverVersion":"v3.72.0","status":"ok","type":"lms","version":"1.16.0"}}`
	if got := string(SerializeJSON(resp)); got != wantJSON {
		t.Fatalf("JSON mismatch:\n got  %s\n want %s", got, wantJSON)
	}

	wantXML := `<?xml version="1.0" encoding="UTF-8"?><subsonic-response openSubsonic="true" serverVersion="v3.72.0" status="ok" type="lms" version="1.16.0" xmlns="http://subsonic.org/restapi"/>`
	if got := string(SerializeXML(resp)); got != wantXML {
		t.Fatalf("XML mismatch:\n got  %s\n want %s", got, wantXML)
	}
}

func TestApplyErrorSetsFailedStatusAndErrorNode(t *testing.T) {
	resp := NewResponse("ok", "1.16.0", "v3.72.0", false)
	resp.ApplyError(NewAPIError(CodeWrongUsernameOrPassword, "wrong username or password"))

	if got := resp.Root.attrs["status"]; valueToString(got) != "failed" {
		t.Fatalf("expected status=failed, got %v", got)
	}
	errNode := resp.Root.singular["error"]
	if errNode == nil {
		t.Fatal("expected an error child node")
	}
	if valueToString(errNode.attrs["code"]) != "40" {
		t.Fatalf("expected code=40, got %v", errNode.attrs["code"])
	}
	if valueToString(errNode.attrs["message"]) != "wrong username or password" {
		t.Fatalf("unexpected message: %v", errNode.attrs["message"])
	}

	j := string(SerializeJSON(resp))
	if !strings.Contains(j, `"error":{"code":40,"message":"wrong username or password"}`) {
		t.Fatalf("JSON missing error node: %s", j)
	}
	x := string(SerializeXML(resp))
	if !strings.Contains(x, `<error code="40" message="wrong username or password"/>`) {
		t.Fatalf("XML missing error node: %s", x)
	}
}

func TestCompactEqualIgnoresKeyOrderAndFormatting(t *testing.T) {
	a := []byte(`{"a":1,"b":{"c":2,"d":3}}`)
	b := []byte(`{"b":{"d":3,"c":2},"a":1}`)
	if !compactEqual(a, b) {
		t.Fatal("expected structurally identical JSON to compare equal regardless of key order")
	}
	c := []byte(`{"a":1,"b":{"c":2,"d":4}}`)
	if compactEqual(a, c) {
		t.Fatal("expected differing values to compare unequal")
	}
	if compactEqual(a, []byte("not json")) {
		t.Fatal("malformed JSON must never compare equal")
	}
}

// buildSampleTree exercises every child kind a Node supports: a
// singular child, an array of nodes, and an array of primitives,
// nested two levels deep so the parity check below has real structure
// to walk.
func buildSampleTree() *Response {
	resp := NewResponse("ok", "1.16.0", "v3.72.0", true)
	root := resp.Root

	sub := root.Child("subsonic")
	sub.AttrString("status", "ok")

	for i := 0; i < 2; i++ {
		item := root.AddArrayItem("album")
		item.AttrInt("id", int64(i))
		item.AttrString("name", "Album "+strconv.Itoa(i))
		item.AddPrimitiveArrayItem("genre", StringValue("Rock"))
	}

	root.AddPrimitiveArrayItem("musicFolder", IntValue(1))
	root.AddPrimitiveArrayItem("musicFolder", IntValue(2))

	return resp
}

// TestXMLJSONStructuralParity checks that XML and JSON serializations of the same Response encode the same
// node structure (same set of attribute/child keys per node, same
// array lengths) independent of the two wire formats' differing type
// systems (XML attributes are always strings; JSON keeps bool/int/
// float distinct).
func TestXMLJSONStructuralParity(t *testing.T) {
	resp := buildSampleTree()

	jsonShape := shapeOfJSON(nodeToJSON(resp.Root))

	xmlRoot := parseXMLGeneric(t, SerializeXML(resp))
	xmlShape := shapeOfXML(xmlRoot)

	if !compactEqual(mustMarshalShape(t, jsonShape), mustMarshalShape(t, xmlShape)) {
		t.Fatalf("structural mismatch:\n json shape: %#v\n xml shape:  %#v", jsonShape, xmlShape)
	}
}

// shape is a type-erased description of a Node's structure: the
// sorted set of attribute/object keys present, plus the length of any
// array found under each key. It intentionally drops values, so it can
// compare a JSON-typed tree against an XML string-typed tree.
type shape struct {
	Keys  []string         `json:"keys"`
	Sizes map[string]int   `json:"sizes,omitempty"`
	Sub   map[string]shape `json:"sub,omitempty"`
}

func shapeOfJSON(v any) shape {
	obj, ok := v.(map[string]any)
	if !ok {
		return shape{}
	}
	s := shape{Sizes: map[string]int{}, Sub: map[string]shape{}}
	for k, val := range obj {
		s.Keys = append(s.Keys, k)
		switch tv := val.(type) {
		case []any:
			s.Sizes[k] = len(tv)
			if len(tv) > 0 {
				if m, ok := tv[0].(map[string]any); ok {
					s.Sub[k] = shapeOfJSON(m)
				}
			}
		case map[string]any:
			s.Sizes[k] = 1
			s.Sub[k] = shapeOfJSON(tv)
		}
	}
	sortStrings(s.Keys)
	return s
}

func shapeOfXML(n *xmlGenericNode) shape {
	s := shape{Sizes: map[string]int{}, Sub: map[string]shape{}}
	for k := range n.attrs {
		// xmlns is a wire-level namespace declaration SerializeXML adds
		// only to the root element; it has no counterpart in the Node
		// tree or the JSON encoding, so it's excluded from the parity
		// check rather than compared.
		if k == "xmlns" {
			continue
		}
		s.Keys = append(s.Keys, k)
	}
	for k, children := range n.children {
		s.Keys = append(s.Keys, k)
		s.Sizes[k] = len(children)
		if len(children) > 0 && len(children[0].attrs)+len(children[0].children) > 0 {
			s.Sub[k] = shapeOfXML(children[0])
		}
	}
	sortStrings(s.Keys)
	return s
}

func sortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}

func mustMarshalShape(t *testing.T, s shape) []byte {
	t.Helper()
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshalShape: %v", err)
	}
	return b
}

// xmlGenericNode is a minimal, attribute/child-only parse of an XML
// element, enough to compare shapes against the JSON tree without
// depending on encoding/xml's struct-tag machinery.
type xmlGenericNode struct {
	attrs    map[string]string
	children map[string][]*xmlGenericNode
}

func parseXMLGeneric(t *testing.T, data []byte) *xmlGenericNode {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader(data))
	var root *xmlGenericNode
	var stack []*xmlGenericNode
	for {
		tok, err := dec.Token()
		if tok == nil {
			break
		}
		if err != nil {
			t.Fatalf("xml decode: %v", err)
		}
		switch se := tok.(type) {
		case xml.StartElement:
			node := &xmlGenericNode{attrs: map[string]string{}, children: map[string][]*xmlGenericNode{}}
			for _, a := range se.Attr {
				node.attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children[se.Name.Local] = append(parent.children[se.Name.Local], node)
			} else {
				root = node
			}
			stack = append(stack, node)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		}
	}
	return root
}
