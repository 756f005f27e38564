// Package validation checks decoded JSON documents against a small declarative
// schema.
//
// Validation is tolerant: fields the schema does not declare produce warnings,
// never errors, so documents written by newer or older versions of the sheet
// still pass as long as the declared structure holds.
package validation

import "sort"

// Kind is the closed set of schema node kinds.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindNumber
	KindInteger
	KindBoolean
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "any"
	}
}

// Node describes the expected shape of one value.
//
// Properties applies to objects with a fixed set of keys. Values applies to
// objects used as maps with arbitrary keys. Items applies to array elements.
type Node struct {
	Kind       Kind
	Required   bool
	Properties map[string]*Node
	Values     *Node
	Items      *Node
}

func Any() *Node     { return &Node{Kind: KindAny} }
func String() *Node  { return &Node{Kind: KindString} }
func Number() *Node  { return &Node{Kind: KindNumber} }
func Integer() *Node { return &Node{Kind: KindInteger} }
func Boolean() *Node { return &Node{Kind: KindBoolean} }

// Object declares an object with a fixed set of properties.
func Object(props map[string]*Node) *Node {
	return &Node{Kind: KindObject, Properties: props}
}

// MapOf declares an object whose values all share one schema.
func MapOf(values *Node) *Node {
	return &Node{Kind: KindObject, Values: values}
}

// Array declares an array whose elements share one schema.
func Array(items *Node) *Node {
	return &Node{Kind: KindArray, Items: items}
}

// Req returns a copy of n marked as required.
func (n *Node) Req() *Node {
	c := *n
	c.Required = true
	return &c
}

func (n *Node) propertyNames() []string {
	names := make([]string, 0, len(n.Properties))
	for name := range n.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
