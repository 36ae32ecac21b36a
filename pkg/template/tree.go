package template

import "fmt"

// Position is the source location of a node. Line and Column are 1-based.
type Position struct {
	Template string
	Line     int
	Column   int
}

func (p Position) String() string {
	return fmt.Sprintf("%s [line %d, column %d]", p.Template, p.Line, p.Column)
}

// Node is an element of an expression tree. The set of implementations is closed.
type Node interface {
	node()
}

// IntNode is an integer literal.
type IntNode struct {
	Value int32
}

func (*IntNode) node() {}

// NewIntNode creates an integer literal node.
func NewIntNode(v int32) *IntNode {
	return &IntNode{Value: v}
}

// StringNode is a string literal.
type StringNode struct {
	Value string
}

func (*StringNode) node() {}

// NewStringNode creates a string literal node.
func NewStringNode(v string) *StringNode {
	return &StringNode{Value: v}
}

// BoolNode is a boolean literal.
type BoolNode struct {
	Value bool
}

func (*BoolNode) node() {}

// NewBoolNode creates a boolean literal node.
func NewBoolNode(v bool) *BoolNode {
	return &BoolNode{Value: v}
}

// NullNode evaluates to Absent.
type NullNode struct{}

func (*NullNode) node() {}

// NewNullNode creates a node without a value.
func NewNullNode() *NullNode {
	return &NullNode{}
}

// ReferenceNode looks up a variable in the evaluation context.
type ReferenceNode struct {
	Name string
	Pos  Position
}

func (*ReferenceNode) node() {}

// NewReferenceNode creates a reference to the variable name located at pos.
func NewReferenceNode(name string, pos Position) *ReferenceNode {
	return &ReferenceNode{Name: name, Pos: pos}
}

// BinaryNode applies an arithmetic operator to exactly two operands.
type BinaryNode struct {
	Op    Operator
	Left  Node
	Right Node
	Pos   Position
}

func (*BinaryNode) node() {}

// NewBinaryNode creates a node applying op to left and right.
func NewBinaryNode(op Operator, left, right Node, pos Position) *BinaryNode {
	return &BinaryNode{Op: op, Left: left, Right: right, Pos: pos}
}
