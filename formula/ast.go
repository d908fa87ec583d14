package formula

import (
	"fmt"
	"strings"
)

// Position is the location of a node within the formula text.
// Offset is the rune index (0-based), Column is 1-based for error reporting.
type Position struct {
	Offset int
	Column int
	Length int
}

// Node is one node of a parsed formula.
type Node interface {
	Pos() Position
	node()
}

// Number is a numeric literal. Value is int64 for integers, float64 otherwise.
type Number struct {
	Value    any
	Position Position
}

// String is a single-quoted text literal.
type String struct {
	Value    string
	Position Position
}

// Column references a column, either bare (Price) or bracketed ([Unit Price]).
type Column struct {
	Name     string
	Position Position
}

// Unary is a negation.
type Unary struct {
	Operator rune
	Operand  Node
	Position Position
}

// Binary is an arithmetic operation: one of + - * / %.
type Binary struct {
	Operator rune
	Left     Node
	Right    Node
	Position Position
}

func (n *Number) Pos() Position { return n.Position }
func (n *String) Pos() Position { return n.Position }
func (n *Column) Pos() Position { return n.Position }
func (n *Unary) Pos() Position  { return n.Position }
func (n *Binary) Pos() Position { return n.Position }

func (*Number) node() {}
func (*String) node() {}
func (*Column) node() {}
func (*Unary) node()  {}
func (*Binary) node() {}

// Columns returns the distinct column names referenced by n, in order of appearance.
func Columns(n Node) []string {
	var (
		names []string
		seen  = map[string]bool{}
	)

	var walk func(Node)

	walk = func(n Node) {
		switch v := n.(type) {
		case *Column:
			if !seen[v.Name] {
				seen[v.Name] = true
				names = append(names, v.Name)
			}
		case *Unary:
			walk(v.Operand)
		case *Binary:
			walk(v.Left)
			walk(v.Right)
		}
	}
	walk(n)

	return names
}

// Format renders n back to formula text, parenthesising every binary operation.
func Format(n Node) string {
	switch v := n.(type) {
	case *Number:
		return fmt.Sprint(v.Value)
	case *String:
		return "'" + strings.ReplaceAll(v.Value, "'", "\\'") + "'"
	case *Column:
		if isIdentifier(v.Name) {
			return v.Name
		}

		return "[" + v.Name + "]"
	case *Unary:
		return string(v.Operator) + Format(v.Operand)
	case *Binary:
		return "(" + Format(v.Left) + " " + string(v.Operator) + " " + Format(v.Right) + ")"
	default:
		return ""
	}
}

func isIdentifier(s string) bool {
	for i, r := range s {
		if (i == 0 && !isIdentStart(r)) || !isIdentPart(r) {
			return false
		}
	}

	return s != ""
}
