package template

import (
	"github.com/pkg/errors"
)

// Operator is a binary arithmetic operator.
type Operator uint8

const (
	Mul Operator = iota + 1
	Add
	Sub
	Div
	Mod
)

var operatorSymbols = map[Operator]string{
	Mul: "*",
	Add: "+",
	Sub: "-",
	Div: "/",
	Mod: "%",
}

var operatorNames = map[Operator]string{
	Mul: "multiplication",
	Add: "addition",
	Sub: "subtraction",
	Div: "division",
	Mod: "modulus",
}

// ParseOperator returns the operator for the given symbol.
func ParseOperator(symbol string) (Operator, error) {
	for op, s := range operatorSymbols {
		if s == symbol {
			return op, nil
		}
	}
	return 0, errors.Errorf("unknown operator '%s'", symbol)
}

func (op Operator) String() string {
	if s, ok := operatorSymbols[op]; ok {
		return s
	}
	return "?"
}

func (op Operator) valid() bool {
	_, ok := operatorSymbols[op]
	return ok
}

func (op Operator) name() string {
	return operatorNames[op]
}

// apply computes l op r with int32 wraparound. The second result is false on division by zero.
func (op Operator) apply(l, r Int) (Int, bool) {
	switch op {
	case Mul:
		return l * r, true
	case Add:
		return l + r, true
	case Sub:
		return l - r, true
	case Div:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case Mod:
		if r == 0 {
			return 0, false
		}
		return l % r, true
	default:
		return 0, false
	}
}
