package protocol

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Node is a read-only view of one element of a parsed response. All methods
// are safe on a nil *Node and report "not found".
type Node struct {
	el *etree.Element
}

// Path addresses a value below a node. Each segment names a child element;
// a final segment starting with '@' names an attribute of the element reached
// so far.
type Path []string

// P builds a Path from its segments.
func P(segments ...string) Path {
	return Path(segments)
}

// Tag returns the qualified element name.
func (n *Node) Tag() string {
	if n == nil || n.el == nil {
		return ""
	}
	return n.el.FullTag()
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(key string) (string, bool) {
	if n == nil || n.el == nil {
		return "", false
	}
	attr := n.el.SelectAttr(key)
	if attr == nil {
		return "", false
	}
	return attr.Value, true
}

// Text returns the element's character data with surrounding space trimmed.
func (n *Node) Text() string {
	if n == nil || n.el == nil {
		return ""
	}
	return strings.TrimSpace(n.el.Text())
}

// Child returns the first child element with the given tag.
func (n *Node) Child(tag string) *Node {
	if n == nil || n.el == nil {
		return nil
	}
	el := n.el.SelectElement(tag)
	if el == nil {
		return nil
	}
	return &Node{el: el}
}

// Children returns every child element with the given tag, in document order.
func (n *Node) Children(tag string) []*Node {
	if n == nil || n.el == nil {
		return nil
	}
	return wrap(n.el.SelectElements(tag))
}

// Elements returns all child elements in document order.
func (n *Node) Elements() []*Node {
	if n == nil || n.el == nil {
		return nil
	}
	return wrap(n.el.ChildElements())
}

// Entities returns the entity rows named tag: direct children first, else the
// children of the first child element that has any.
func (n *Node) Entities(tag string) []*Node {
	if direct := n.Children(tag); len(direct) > 0 {
		return direct
	}
	for _, child := range n.Elements() {
		if nested := child.Children(tag); len(nested) > 0 {
			return nested
		}
	}
	return nil
}

// Lookup resolves one path. An element that carries attributes or child
// elements but no text has no scalar value.
func (n *Node) Lookup(p Path) (string, bool) {
	cur := n
	for i, seg := range p {
		if strings.HasPrefix(seg, "@") {
			if i != len(p)-1 {
				return "", false
			}
			return cur.Attr(seg[1:])
		}
		cur = cur.Child(seg)
		if cur == nil {
			return "", false
		}
	}
	return cur.value()
}

func (n *Node) value() (string, bool) {
	if n == nil || n.el == nil {
		return "", false
	}
	text := n.Text()
	if text == "" && (len(n.el.Attr) > 0 || len(n.el.ChildElements()) > 0) {
		return "", false
	}
	return text, true
}

// String returns the value of the first candidate path that resolves.
func (n *Node) String(candidates ...Path) (string, bool) {
	for _, p := range candidates {
		if v, ok := n.Lookup(p); ok {
			return v, true
		}
	}
	return "", false
}

// StringOr is String with a fallback.
func (n *Node) StringOr(fallback string, candidates ...Path) string {
	if v, ok := n.String(candidates...); ok {
		return v
	}
	return fallback
}

// Number returns the first candidate path that resolves to a parseable number.
func (n *Node) Number(candidates ...Path) (float64, bool) {
	for _, p := range candidates {
		raw, ok := n.Lookup(p)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}

// Int is Number truncated to an int.
func (n *Node) Int(candidates ...Path) (int, bool) {
	v, ok := n.Number(candidates...)
	if !ok {
		return 0, false
	}
	return int(v), true
}

// Bool accepts 1/true/yes and 0/false/no, case-insensitively.
func (n *Node) Bool(candidates ...Path) (bool, bool) {
	for _, p := range candidates {
		raw, ok := n.Lookup(p)
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "1", "true", "yes":
			return true, true
		case "0", "false", "no":
			return false, true
		}
	}
	return false, false
}

func wrap(els []*etree.Element) []*Node {
	if len(els) == 0 {
		return nil
	}
	out := make([]*Node, 0, len(els))
	for _, el := range els {
		out = append(out, &Node{el: el})
	}
	return out
}
