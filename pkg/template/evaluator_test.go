package template

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavesplatform/gorender/pkg/diag"
)

var testPos = Position{Template: "page.vm", Line: 4, Column: 12}

func newTestEvaluator() (*Evaluator, *diag.Collector) {
	c := diag.NewCollector()
	return NewEvaluator(c), c
}

func newTestContext(vars map[string]Value) *MapContext {
	return NewMapContext("page.vm", vars)
}

func TestMultiplyWraparound(t *testing.T) {
	e, c := newTestEvaluator()
	ctx := newTestContext(nil)
	for _, test := range []struct {
		l, r int32
	}{
		{0, 0},
		{5, 4},
		{-7, 3},
		{math.MaxInt32, 2},
		{math.MinInt32, -1},
		{math.MaxInt32, math.MaxInt32},
		{65536, 65536},
		{-46341, 46341},
	} {
		v, err := e.Evaluate(ctx, NewBinaryNode(Mul, NewIntNode(test.l), NewIntNode(test.r), testPos))
		require.NoError(t, err)
		assert.Equal(t, Int(test.l*test.r), v, "%d * %d", test.l, test.r)
	}
	assert.Equal(t, Int(0), mustEval(t, e, ctx, NewBinaryNode(Mul, NewIntNode(65536), NewIntNode(65536), testPos)))
	assert.Equal(t, Int(math.MinInt32), mustEval(t, e, ctx, NewBinaryNode(Mul, NewIntNode(math.MinInt32), NewIntNode(-1), testPos)))
	assert.Equal(t, 0, c.Len())
}

func TestArithmeticOperators(t *testing.T) {
	e, c := newTestEvaluator()
	ctx := newTestContext(nil)
	for _, test := range []struct {
		op       Operator
		l, r     int32
		expected Int
	}{
		{Add, 2, 3, 5},
		{Add, 0, -9, -9},
		{Add, math.MaxInt32, 1, math.MinInt32},
		{Sub, 2, 3, -1},
		{Sub, math.MinInt32, 1, math.MaxInt32},
		{Mul, 1, 77, 77},
		{Div, 9, 2, 4},
		{Div, -9, 2, -4},
		{Div, math.MinInt32, -1, math.MinInt32},
		{Mod, 9, 4, 1},
		{Mod, -9, 4, -1},
		{Mod, math.MinInt32, -1, 0},
	} {
		v := mustEval(t, e, ctx, NewBinaryNode(test.op, NewIntNode(test.l), NewIntNode(test.r), testPos))
		assert.Equal(t, test.expected, v, "%d %s %d", test.l, test.op, test.r)
	}
	assert.Equal(t, 0, c.Len())
}

func TestNullOperand(t *testing.T) {
	for _, test := range []struct {
		name  string
		left  Node
		right Node
		side  diag.Side
		msg   string
	}{
		{"null left", NewNullNode(), NewIntNode(5), diag.Left,
			"Left side of multiplication operation has null value. Operation not possible."},
		{"null right", NewIntNode(5), NewNullNode(), diag.Right,
			"Right side of multiplication operation has null value. Operation not possible."},
		{"both null", NewNullNode(), NewNullNode(), diag.Left,
			"Left side of multiplication operation has null value. Operation not possible."},
		{"missing reference", NewReferenceNode("missing", testPos), NewIntNode(1), diag.Left,
			"Left side of multiplication operation has null value. Operation not possible."},
		{"null right string left", NewStringNode("x"), NewNullNode(), diag.Right,
			"Right side of multiplication operation has null value. Operation not possible."},
	} {
		t.Run(test.name, func(t *testing.T) {
			e, c := newTestEvaluator()
			v := mustEval(t, e, newTestContext(nil), NewBinaryNode(Mul, test.left, test.right, testPos))
			assert.Equal(t, Absent{}, v)
			require.Equal(t, 1, c.Len())
			d := c.Diagnostics()[0]
			assert.Equal(t, diag.NullOperand, d.Kind)
			assert.Equal(t, test.side, d.Side)
			assert.Equal(t, test.msg, d.Message)
			assert.Equal(t, "page.vm", d.TemplateName)
			assert.Equal(t, 4, d.Line)
			assert.Equal(t, 12, d.Column)
		})
	}
}

func TestTypeMismatch(t *testing.T) {
	for _, test := range []struct {
		name  string
		left  Node
		right Node
		side  diag.Side
	}{
		{"string left", NewStringNode("x"), NewIntNode(2), diag.Left},
		{"string right", NewIntNode(2), NewStringNode("x"), diag.Right},
		{"bool right", NewIntNode(2), NewBoolNode(true), diag.Right},
		{"both wrong", NewBoolNode(false), NewStringNode("x"), diag.Left},
	} {
		t.Run(test.name, func(t *testing.T) {
			e, c := newTestEvaluator()
			v := mustEval(t, e, newTestContext(nil), NewBinaryNode(Add, test.left, test.right, testPos))
			assert.Equal(t, Absent{}, v)
			require.Equal(t, 1, c.Len())
			d := c.Diagnostics()[0]
			assert.Equal(t, diag.TypeMismatch, d.Kind)
			assert.Equal(t, test.side, d.Side)
			assert.Contains(t, d.Message, test.side.String()+" side of addition operation is not a valid type.")
			assert.Contains(t, d.Message, "integers")
			assert.Equal(t, "page.vm", d.TemplateName)
		})
	}
}

func TestDivisionByZero(t *testing.T) {
	for _, op := range []Operator{Div, Mod} {
		e, c := newTestEvaluator()
		v := mustEval(t, e, newTestContext(nil), NewBinaryNode(op, NewIntNode(1), NewIntNode(0), testPos))
		assert.Equal(t, Absent{}, v)
		require.Equal(t, 1, c.Len())
		assert.Equal(t, diag.DivisionByZero, c.Diagnostics()[0].Kind)
		assert.Equal(t, diag.Right, c.Diagnostics()[0].Side)
	}
}

func TestAbsentPropagatesUpward(t *testing.T) {
	e, c := newTestEvaluator()
	inner := NewBinaryNode(Mul, NewNullNode(), NewIntNode(5), Position{Line: 1, Column: 3})
	outer := NewBinaryNode(Add, inner, NewIntNode(1), Position{Line: 1, Column: 1})
	v := mustEval(t, e, newTestContext(nil), outer)
	assert.True(t, IsAbsent(v))
	ds := c.Diagnostics()
	require.Len(t, ds, 2)
	assert.Equal(t, 3, ds[0].Column)
	assert.Equal(t, diag.Left, ds[0].Side)
	assert.Equal(t, 1, ds[1].Column)
	assert.Equal(t, diag.Left, ds[1].Side)
}

func TestReferences(t *testing.T) {
	e, c := newTestEvaluator()
	ctx := newTestContext(map[string]Value{"price": Int(7), "qty": Int(3)})
	v := mustEval(t, e, ctx, NewBinaryNode(Mul,
		NewReferenceNode("price", testPos), NewReferenceNode("qty", testPos), testPos))
	assert.Equal(t, Int(21), v)
	assert.Equal(t, 0, c.Len())

	ctx.Set("qty", Absent{})
	v = mustEval(t, e, ctx, NewBinaryNode(Mul,
		NewReferenceNode("price", testPos), NewReferenceNode("qty", testPos), testPos))
	assert.Equal(t, Absent{}, v)
	assert.Equal(t, diag.Right, c.Diagnostics()[0].Side)
}

type recordingContext struct {
	vars    map[string]Value
	lookups []string
}

func (c *recordingContext) CurrentTemplateName() string { return "recorded.vm" }

func (c *recordingContext) Lookup(name string) (Value, bool) {
	c.lookups = append(c.lookups, name)
	v, ok := c.vars[name]
	return v, ok
}

func TestEvaluationOrderIsLeftToRight(t *testing.T) {
	e, _ := newTestEvaluator()
	ctx := &recordingContext{vars: map[string]Value{"a": Int(1), "b": Int(2), "c": Int(3), "d": Int(4)}}
	left := NewBinaryNode(Mul, NewReferenceNode("a", testPos), NewReferenceNode("b", testPos), testPos)
	right := NewBinaryNode(Sub, NewReferenceNode("c", testPos), NewReferenceNode("d", testPos), testPos)
	v := mustEval(t, e, ctx, NewBinaryNode(Add, left, right, testPos))
	assert.Equal(t, Int(1), v)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ctx.lookups)
}

func TestBothOperandsEvaluatedBeforeReporting(t *testing.T) {
	e, c := newTestEvaluator()
	ctx := &recordingContext{vars: map[string]Value{}}
	v := mustEval(t, e, ctx, NewBinaryNode(Mul,
		NewReferenceNode("x", testPos), NewReferenceNode("y", testPos), testPos))
	assert.Equal(t, Absent{}, v)
	assert.Equal(t, []string{"x", "y"}, ctx.lookups)
	assert.Equal(t, "recorded.vm", c.Diagnostics()[0].TemplateName)
}

type unknownNode struct{}

func (*unknownNode) node() {}

func TestMalformedTrees(t *testing.T) {
	e, c := newTestEvaluator()
	ctx := newTestContext(nil)

	_, err := e.Evaluate(ctx, nil)
	assert.Error(t, err)

	_, err = e.Evaluate(ctx, &unknownNode{})
	assert.EqualError(t, err, "unsupported node type '*template.unknownNode'")

	_, err = e.Evaluate(ctx, NewBinaryNode(Mul, NewIntNode(1), nil, testPos))
	assert.ErrorContains(t, err, "failed to evaluate right side of multiplication")

	_, err = e.Evaluate(ctx, NewBinaryNode(Operator(42), NewIntNode(1), NewIntNode(1), testPos))
	assert.ErrorContains(t, err, "unsupported operator 42")

	_, err = e.Evaluate(nil, NewIntNode(1))
	assert.Error(t, err)

	var nilBinary *BinaryNode
	_, err = e.Evaluate(ctx, nilBinary)
	assert.Error(t, err)

	assert.Equal(t, 0, c.Len())
}

func TestTypedNilNodes(t *testing.T) {
	e, c := newTestEvaluator()
	ctx := newTestContext(nil)
	for _, test := range []struct {
		node Node
		err  string
	}{
		{(*IntNode)(nil), "nil integer node"},
		{(*StringNode)(nil), "nil string node"},
		{(*BoolNode)(nil), "nil boolean node"},
		{(*NullNode)(nil), "nil null node"},
		{(*ReferenceNode)(nil), "nil reference node"},
		{(*BinaryNode)(nil), "nil binary node"},
	} {
		_, err := e.Evaluate(ctx, test.node)
		assert.EqualError(t, err, test.err)

		_, err = e.Evaluate(ctx, NewBinaryNode(Mul, test.node, NewIntNode(1), testPos))
		assert.ErrorContains(t, err, "failed to evaluate left side of multiplication")
		assert.ErrorContains(t, err, test.err)
	}
	assert.Equal(t, 0, c.Len())
}

func TestNilReporterDiscards(t *testing.T) {
	e := NewEvaluator(nil)
	v, err := e.Evaluate(newTestContext(nil), NewBinaryNode(Mul, NewNullNode(), NewIntNode(1), testPos))
	require.NoError(t, err)
	assert.Equal(t, Absent{}, v)
}

func mustEval(t *testing.T, e *Evaluator, ctx Context, n Node) Value {
	t.Helper()
	v, err := e.Evaluate(ctx, n)
	require.NoError(t, err)
	return v
}
