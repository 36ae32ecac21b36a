package template

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/wavesplatform/gorender/pkg/diag"
)

// Evaluator computes values of expression trees. Problems with operand values are reported
// to the diagnostics reporter and turn the result of the operation into Absent, the
// evaluation itself continues. Errors are returned only for malformed trees.
//
// An Evaluator holds no per-evaluation state and may be shared, as long as the
// reporter tolerates concurrent calls.
type Evaluator struct {
	reporter diag.Reporter
}

// NewEvaluator creates an evaluator reporting to r. A nil r discards diagnostics.
func NewEvaluator(r diag.Reporter) *Evaluator {
	if r == nil {
		r = diag.Discard
	}
	return &Evaluator{reporter: r}
}

// Evaluate computes the value of the tree rooted at node.
func (e *Evaluator) Evaluate(ctx Context, node Node) (Value, error) {
	if ctx == nil {
		return nil, errors.New("nil evaluation context")
	}
	return e.walk(ctx, node)
}

func (e *Evaluator) walk(ctx Context, node Node) (Value, error) {
	switch n := node.(type) {
	case *IntNode:
		if n == nil {
			return nil, errors.New("nil integer node")
		}
		return Int(n.Value), nil

	case *StringNode:
		if n == nil {
			return nil, errors.New("nil string node")
		}
		return String(n.Value), nil

	case *BoolNode:
		if n == nil {
			return nil, errors.New("nil boolean node")
		}
		return Bool(n.Value), nil

	case *NullNode:
		if n == nil {
			return nil, errors.New("nil null node")
		}
		return Absent{}, nil

	case *ReferenceNode:
		if n == nil {
			return nil, errors.New("nil reference node")
		}
		v, ok := ctx.Lookup(n.Name)
		if !ok || v == nil {
			return Absent{}, nil
		}
		return v, nil

	case *BinaryNode:
		if n == nil {
			return nil, errors.New("nil binary node")
		}
		return e.binary(ctx, n)

	case nil:
		return nil, errors.New("nil node")

	default:
		return nil, errors.Errorf("unsupported node type '%T'", node)
	}
}

func (e *Evaluator) binary(ctx Context, n *BinaryNode) (Value, error) {
	if !n.Op.valid() {
		return nil, errors.Errorf("unsupported operator %d at %s", n.Op, n.Pos)
	}
	left, err := e.walk(ctx, n.Left)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to evaluate left side of %s", n.Op.name())
	}
	right, err := e.walk(ctx, n.Right)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to evaluate right side of %s", n.Op.name())
	}

	if la, ra := IsAbsent(left), IsAbsent(right); la || ra {
		side := sideOf(la)
		e.report(ctx, n, diag.NullOperand, side,
			fmt.Sprintf("%s side of %s operation has null value. Operation not possible.", side, n.Op.name()))
		return Absent{}, nil
	}

	l, lok := left.(Int)
	r, rok := right.(Int)
	if !lok || !rok {
		side := sideOf(!lok)
		e.report(ctx, n, diag.TypeMismatch, side,
			fmt.Sprintf("%s side of %s operation is not a valid type. "+
				"Currently only integers (1,2,3...) and Integer type is supported.", side, n.Op.name()))
		return Absent{}, nil
	}

	res, ok := n.Op.apply(l, r)
	if !ok {
		e.report(ctx, n, diag.DivisionByZero, diag.Right,
			fmt.Sprintf("Right side of %s operation is zero. Must be non-zero.", n.Op.name()))
		return Absent{}, nil
	}
	return res, nil
}

// sideOf returns Left if the left operand is the culprit, Right otherwise.
func sideOf(left bool) diag.Side {
	if left {
		return diag.Left
	}
	return diag.Right
}

func (e *Evaluator) report(ctx Context, n *BinaryNode, kind diag.Kind, side diag.Side, msg string) {
	e.reporter.Report(diag.Diagnostic{
		Kind:         kind,
		Side:         side,
		Message:      msg,
		TemplateName: ctx.CurrentTemplateName(),
		Line:         n.Pos.Line,
		Column:       n.Pos.Column,
	})
}
