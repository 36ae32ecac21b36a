package render

import "github.com/wavesplatform/gorender/pkg/template"

// Segment is a piece of a template: literal text or an expression.
type Segment interface {
	segment()
}

// Text is written to the output as is.
type Text string

func (Text) segment() {}

// Expression is evaluated and its value is written to the output.
// Source is the expression as it appears in the template text.
type Expression struct {
	Node   template.Node
	Source string
}

func (*Expression) segment() {}

func NewExpression(node template.Node, source string) *Expression {
	return &Expression{Node: node, Source: source}
}

// Template is a parsed template ready for rendering.
type Template struct {
	Name     string
	Segments []Segment
}
