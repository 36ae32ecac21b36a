package template

import (
	"math"
	"strconv"

	"github.com/ccoveille/go-safecast"
	"github.com/pkg/errors"
)

const (
	absentTypeName = "Absent"
	boolTypeName   = "Boolean"
	intTypeName    = "Integer"
	stringTypeName = "String"
)

// Value is the result of evaluating a node. Implementations are Int, String, Bool and Absent.
type Value interface {
	instanceOf() string
	text() string
}

// Int is a 32-bit signed integer. Arithmetic on Int wraps around on overflow.
type Int int32

func (Int) instanceOf() string {
	return intTypeName
}

func (v Int) text() string {
	return strconv.FormatInt(int64(v), 10)
}

type String string

func (String) instanceOf() string {
	return stringTypeName
}

func (v String) text() string {
	return string(v)
}

type Bool bool

func (Bool) instanceOf() string {
	return boolTypeName
}

func (v Bool) text() string {
	return strconv.FormatBool(bool(v))
}

// Absent marks the lack of a value. It is distinct from Int(0).
type Absent struct{}

func (Absent) instanceOf() string {
	return absentTypeName
}

func (Absent) text() string {
	return ""
}

// TypeName returns the name of the runtime type of v.
func TypeName(v Value) string {
	if v == nil {
		return absentTypeName
	}
	return v.instanceOf()
}

// IsAbsent reports whether v carries no value. A nil Value is treated as absent.
func IsAbsent(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Absent)
	return ok
}

// Format returns the textual form of v as it is written to the output.
// Absent values format to the empty string.
func Format(v Value) string {
	if v == nil {
		return ""
	}
	return v.text()
}

// ValueOf converts a Go value into a Value. Integers outside of the int32 range are rejected.
func ValueOf(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Absent{}, nil
	case Value:
		return v, nil
	case int:
		return checkedInt(safecast.ToInt32(v))
	case int8:
		return Int(v), nil
	case int16:
		return Int(v), nil
	case int32:
		return Int(v), nil
	case int64:
		return checkedInt(safecast.ToInt32(v))
	case uint:
		return checkedInt(safecast.ToInt32(v))
	case uint8:
		return Int(v), nil
	case uint16:
		return Int(v), nil
	case uint32:
		return checkedInt(safecast.ToInt32(v))
	case uint64:
		return checkedInt(safecast.ToInt32(v))
	case float64:
		if math.Trunc(v) != v {
			return nil, errors.Errorf("non-integer number %v is not supported", v)
		}
		return checkedInt(safecast.ToInt32(v))
	case string:
		return String(v), nil
	case bool:
		return Bool(v), nil
	default:
		return nil, errors.Errorf("unsupported value type %T", x)
	}
}

func checkedInt(i int32, err error) (Value, error) {
	if err != nil {
		return nil, errors.Wrap(err, "integer out of range")
	}
	return Int(i), nil
}
