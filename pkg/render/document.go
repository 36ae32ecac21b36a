package render

import (
	"math"

	"github.com/ccoveille/go-safecast"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/wavesplatform/gorender/pkg/template"
)

// Template documents are JSON objects of the form
//
//	{
//	  "name": "invoice.vm",
//	  "segments": [
//	    {"text": "Total: "},
//	    {"source": "$price * $qty", "expr": {"op": "*", "line": 1, "column": 15,
//	      "left": {"ref": "price", "line": 1, "column": 8},
//	      "right": {"ref": "qty", "line": 1, "column": 17}}}
//	  ]
//	}
//
// Expression nodes are {"int": 5}, {"string": "x"}, {"bool": true}, {"null": true},
// {"ref": "name"} and {"op": "*", "left": ..., "right": ...}.

const (
	nameKey     = "name"
	segmentsKey = "segments"
	textKey     = "text"
	sourceKey   = "source"
	exprKey     = "expr"
	intKey      = "int"
	stringKey   = "string"
	boolKey     = "bool"
	nullKey     = "null"
	refKey      = "ref"
	opKey       = "op"
	leftKey     = "left"
	rightKey    = "right"
	lineKey     = "line"
	columnKey   = "column"
)

// ParseDocument decodes a JSON template document.
func ParseDocument(data []byte) (*Template, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON document")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, errors.New("template document must be an object")
	}
	t := &Template{Name: doc.Get(nameKey).String()}
	segments := doc.Get(segmentsKey)
	if segments.Exists() && !segments.IsArray() {
		return nil, errors.New("segments must be an array")
	}
	var err error
	segments.ForEach(func(_, seg gjson.Result) bool {
		var s Segment
		s, err = parseSegment(seg, t.Name)
		if err != nil {
			err = errors.Wrapf(err, "segment %d", len(t.Segments))
			return false
		}
		t.Segments = append(t.Segments, s)
		return true
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func parseSegment(seg gjson.Result, name string) (Segment, error) {
	if text := seg.Get(textKey); text.Exists() {
		if text.Type != gjson.String {
			return nil, errors.New("text must be a string")
		}
		return Text(text.String()), nil
	}
	expr := seg.Get(exprKey)
	if !expr.Exists() {
		return nil, errors.New("segment has neither text nor expression")
	}
	n, err := parseNode(expr, name)
	if err != nil {
		return nil, err
	}
	return NewExpression(n, seg.Get(sourceKey).String()), nil
}

func parseNode(n gjson.Result, name string) (template.Node, error) {
	if !n.IsObject() {
		return nil, errors.Errorf("expression node must be an object, got '%s'", n.Raw)
	}
	pos := template.Position{
		Template: name,
		Line:     int(n.Get(lineKey).Int()),
		Column:   int(n.Get(columnKey).Int()),
	}
	switch {
	case n.Get(opKey).Exists():
		op, err := template.ParseOperator(n.Get(opKey).String())
		if err != nil {
			return nil, err
		}
		left, err := parseNode(n.Get(leftKey), name)
		if err != nil {
			return nil, errors.Wrap(err, "left operand")
		}
		right, err := parseNode(n.Get(rightKey), name)
		if err != nil {
			return nil, errors.Wrap(err, "right operand")
		}
		return template.NewBinaryNode(op, left, right, pos), nil

	case n.Get(refKey).Exists():
		return template.NewReferenceNode(n.Get(refKey).String(), pos), nil

	case n.Get(intKey).Exists():
		v := n.Get(intKey)
		if v.Type != gjson.Number || math.Trunc(v.Num) != v.Num {
			return nil, errors.Errorf("invalid integer literal '%s'", v.Raw)
		}
		i, err := safecast.ToInt32(v.Int())
		if err != nil {
			return nil, errors.Wrapf(err, "integer literal '%s' out of range", v.Raw)
		}
		return template.NewIntNode(i), nil

	case n.Get(stringKey).Exists():
		return template.NewStringNode(n.Get(stringKey).String()), nil

	case n.Get(boolKey).Exists():
		v := n.Get(boolKey)
		if !v.IsBool() {
			return nil, errors.Errorf("invalid boolean literal '%s'", v.Raw)
		}
		return template.NewBoolNode(v.Bool()), nil

	case n.Get(nullKey).Exists():
		return template.NewNullNode(), nil

	default:
		return nil, errors.Errorf("unknown expression node '%s'", n.Raw)
	}
}

// MarshalDocument encodes the template as a JSON document accepted by ParseDocument.
func MarshalDocument(t *Template) ([]byte, error) {
	doc, err := sjson.SetBytes([]byte("{}"), nameKey, t.Name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to set template name")
	}
	doc, err = sjson.SetRawBytes(doc, segmentsKey, []byte("[]"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to set segments")
	}
	for i, seg := range t.Segments {
		obj, err := marshalSegment(seg)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode segment %d", i)
		}
		doc, err = sjson.SetRawBytes(doc, segmentsKey+".-1", obj)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to append segment %d", i)
		}
	}
	return doc, nil
}

func marshalSegment(seg Segment) ([]byte, error) {
	switch s := seg.(type) {
	case Text:
		return sjson.SetBytes([]byte("{}"), textKey, string(s))
	case *Expression:
		node, err := marshalNode(s.Node)
		if err != nil {
			return nil, err
		}
		obj, err := sjson.SetBytes([]byte("{}"), sourceKey, s.Source)
		if err != nil {
			return nil, err
		}
		return sjson.SetRawBytes(obj, exprKey, node)
	default:
		return nil, errors.Errorf("unsupported segment type '%T'", seg)
	}
}

func marshalNode(node template.Node) ([]byte, error) {
	obj := []byte("{}")
	var err error
	switch n := node.(type) {
	case *template.IntNode:
		return sjson.SetBytes(obj, intKey, n.Value)
	case *template.StringNode:
		return sjson.SetBytes(obj, stringKey, n.Value)
	case *template.BoolNode:
		return sjson.SetBytes(obj, boolKey, n.Value)
	case *template.NullNode:
		return sjson.SetBytes(obj, nullKey, true)
	case *template.ReferenceNode:
		if obj, err = sjson.SetBytes(obj, refKey, n.Name); err != nil {
			return nil, err
		}
		return setPosition(obj, n.Pos)
	case *template.BinaryNode:
		if obj, err = sjson.SetBytes(obj, opKey, n.Op.String()); err != nil {
			return nil, err
		}
		var left, right []byte
		if left, err = marshalNode(n.Left); err != nil {
			return nil, err
		}
		if right, err = marshalNode(n.Right); err != nil {
			return nil, err
		}
		if obj, err = sjson.SetRawBytes(obj, leftKey, left); err != nil {
			return nil, err
		}
		if obj, err = sjson.SetRawBytes(obj, rightKey, right); err != nil {
			return nil, err
		}
		return setPosition(obj, n.Pos)
	default:
		return nil, errors.Errorf("unsupported node type '%T'", node)
	}
}

func setPosition(obj []byte, pos template.Position) ([]byte, error) {
	if pos.Line == 0 && pos.Column == 0 {
		return obj, nil
	}
	obj, err := sjson.SetBytes(obj, lineKey, pos.Line)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(obj, columnKey, pos.Column)
}

// ParseVariables decodes a JSON object of variables. Numbers must be integers in the
// 32-bit range, null becomes Absent, nested objects and arrays are rejected.
func ParseVariables(data []byte) (map[string]template.Value, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON variables")
	}
	obj := gjson.ParseBytes(data)
	if !obj.IsObject() {
		return nil, errors.New("variables must be an object")
	}
	vars := make(map[string]template.Value)
	var err error
	obj.ForEach(func(key, value gjson.Result) bool {
		var v template.Value
		v, err = variableValue(value)
		if err != nil {
			err = errors.Wrapf(err, "variable '%s'", key.String())
			return false
		}
		vars[key.String()] = v
		return true
	})
	if err != nil {
		return nil, err
	}
	return vars, nil
}

func variableValue(v gjson.Result) (template.Value, error) {
	switch v.Type {
	case gjson.Null:
		return template.Absent{}, nil
	case gjson.True, gjson.False:
		return template.Bool(v.Bool()), nil
	case gjson.String:
		return template.String(v.String()), nil
	case gjson.Number:
		return template.ValueOf(v.Num)
	default:
		return nil, errors.Errorf("unsupported value '%s'", v.Raw)
	}
}

// LoadDocument reads and decodes a template document from fs.
func LoadDocument(fs afero.Fs, path string) (*Template, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read template document '%s'", path)
	}
	t, err := ParseDocument(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse template document '%s'", path)
	}
	return t, nil
}

// LoadVariables reads and decodes variables from fs.
func LoadVariables(fs afero.Fs, path string) (map[string]template.Value, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read variables '%s'", path)
	}
	vars, err := ParseVariables(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse variables '%s'", path)
	}
	return vars, nil
}
