package subsonic

import (
	"bytes"
	"encoding/xml"
	"math"
	"strconv"
)

// subsonicXMLNS is the fixed default namespace on the root element.
const subsonicXMLNS = "http://subsonic.org/restapi"

// SerializeXML renders resp as the root <subsonic-response> element,
// preceded by the XML declaration.
func SerializeXML(resp *Response) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	writeXMLElement(&buf, "subsonic-response", resp.Root, true)
	return buf.Bytes()
}

// writeXMLElement writes <tag attrs...>children...</tag>, or a
// self-closing <tag attrs.../> when there is neither a primitive value
// nor any children. isRoot adds the fixed xmlns attribute, which sorts
// alphabetically after every fixed root attribute per the fixture.
func writeXMLElement(buf *bytes.Buffer, tag string, n *Node, isRoot bool) {
	buf.WriteByte('<')
	buf.WriteString(tag)

	for _, key := range n.sortedAttrKeys() {
		writeXMLAttr(buf, key, n.attrs[key])
	}
	if isRoot {
		writeXMLAttr(buf, "xmlns", StringValue(subsonicXMLNS))
	}

	hasBody := n.value != nil || len(n.order) > 0
	if !hasBody {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')

	if n.value != nil {
		buf.WriteString(escapeXMLText(valueToString(*n.value)))
	}

	for _, slot := range n.order {
		switch slot.kind {
		case singularKind:
			writeXMLElement(buf, slot.key, n.singular[slot.key], false)
		case arrayNodeKind:
			for _, child := range n.arrayNodes[slot.key] {
				writeXMLElement(buf, slot.key, child, false)
			}
		case arrayPrimKind:
			for _, v := range n.arrayPrims[slot.key] {
				buf.WriteByte('<')
				buf.WriteString(slot.key)
				buf.WriteByte('>')
				buf.WriteString(escapeXMLText(valueToString(v)))
				buf.WriteString("</")
				buf.WriteString(slot.key)
				buf.WriteByte('>')
			}
		}
	}

	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteByte('>')
}

func writeXMLAttr(buf *bytes.Buffer, key string, v Value) {
	if v.kind == KindFloat && (math.IsNaN(v.f) || math.IsInf(v.f, 0)) {
		return
	}
	buf.WriteByte(' ')
	buf.WriteString(key)
	buf.WriteString(`="`)
	buf.WriteString(escapeXMLAttr(valueToString(v)))
	buf.WriteByte('"')
}

func valueToString(v Value) string {
	switch v.kind {
	case KindString:
		return v.s
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	default:
		return ""
	}
}

func escapeXMLAttr(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func escapeXMLText(s string) string {
	return escapeXMLAttr(s)
}
