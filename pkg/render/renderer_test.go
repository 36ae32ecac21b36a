package render

import (
	"strings"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wavesplatform/gorender/pkg/diag"
	"github.com/wavesplatform/gorender/pkg/output"
	"github.com/wavesplatform/gorender/pkg/template"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stringWriter struct {
	strings.Builder
	flushes int
}

func (w *stringWriter) Flush() error {
	w.flushes++
	return nil
}

func invoiceTemplate() *Template {
	pos := func(col int) template.Position {
		return template.Position{Template: "invoice.vm", Line: 1, Column: col}
	}
	return &Template{
		Name: "invoice.vm",
		Segments: []Segment{
			Text("Total: "),
			NewExpression(template.NewBinaryNode(template.Mul,
				template.NewReferenceNode("price", pos(8)),
				template.NewReferenceNode("qty", pos(17)),
				pos(15)), "$price * $qty"),
			Text(" EUR"),
		},
	}
}

func TestRenderString(t *testing.T) {
	c := diag.NewCollector()
	r := NewRenderer(c, Options{})
	out, err := r.RenderString(invoiceTemplate(), map[string]template.Value{
		"price": template.Int(25),
		"qty":   template.Int(4),
	})
	require.NoError(t, err)
	assert.Equal(t, "Total: 100 EUR", out)
	assert.Equal(t, 0, c.Len())

	out, err = r.RenderString(invoiceTemplate(), map[string]template.Value{
		"price": template.Int(3),
		"qty":   template.Int(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "Total: 9 EUR", out)

	allocations, _, gets := r.Pool().Stat()
	assert.EqualValues(t, 1, allocations)
	assert.EqualValues(t, 2, gets)
}

func TestRenderNullOperandIsNotFatal(t *testing.T) {
	c := diag.NewCollector()
	r := NewRenderer(diag.Tee(c, diag.NewSlogReporter(slogt.New(t))), Options{})
	out, err := r.RenderString(invoiceTemplate(), map[string]template.Value{"price": template.Int(3)})
	require.NoError(t, err)
	assert.Equal(t, "Total:  EUR", out)
	ds := c.Diagnostics()
	require.Len(t, ds, 1)
	assert.Equal(t, diag.NullOperand, ds[0].Kind)
	assert.Equal(t, diag.Right, ds[0].Side)
	assert.Equal(t, "invoice.vm", ds[0].TemplateName)
	assert.Equal(t, 15, ds[0].Column)
}

func TestRenderPlaceholderSource(t *testing.T) {
	c := diag.NewCollector()
	r := NewRenderer(c, Options{Placeholder: PlaceholderSource})
	out, err := r.RenderString(invoiceTemplate(), map[string]template.Value{
		"price": template.String("x"),
		"qty":   template.Int(2),
	})
	require.NoError(t, err)
	assert.Equal(t, "Total: $price * $qty EUR", out)
	require.Equal(t, 1, c.Len())
	assert.Equal(t, diag.TypeMismatch, c.Diagnostics()[0].Kind)
	assert.Equal(t, diag.Left, c.Diagnostics()[0].Side)
}

func TestRenderStrict(t *testing.T) {
	r := NewRenderer(nil, Options{Strict: true})
	out, err := r.RenderString(invoiceTemplate(), nil)
	assert.ErrorIs(t, err, ErrDiagnostics)
	assert.Equal(t, "Total:  EUR", out)

	out, err = r.RenderString(invoiceTemplate(), map[string]template.Value{
		"price": template.Int(1),
		"qty":   template.Int(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "Total: 1 EUR", out)
}

func TestRenderIntoSink(t *testing.T) {
	w := &stringWriter{}
	sink, err := output.New(w, 8, true)
	require.NoError(t, err)
	ctx := template.NewMapContext("invoice.vm", map[string]template.Value{
		"price": template.Int(-7),
		"qty":   template.Int(6),
	})
	r := NewRenderer(nil, Options{})
	require.NoError(t, r.Render(ctx, invoiceTemplate(), sink))
	assert.Equal(t, "Total: -", w.String())
	assert.Equal(t, 6, sink.Buffered())
	require.NoError(t, sink.Close())
	assert.Equal(t, "Total: -42 EUR", w.String())
	assert.Equal(t, 1, w.flushes)
}

func TestRenderStrictSinkOverflow(t *testing.T) {
	tmpl := &Template{Name: "long.vm", Segments: []Segment{Text("0123"), Text("4567"), Text("89")}}
	ctx := template.NewMapContext("long.vm", nil)

	c := diag.NewCollector()
	w := &stringWriter{}
	sink, err := output.New(w, 6, false, output.WithReporter(c))
	require.NoError(t, err)
	err = NewRenderer(nil, Options{}).Render(ctx, tmpl, sink)
	assert.ErrorIs(t, err, output.ErrBufferOverflow)
	assert.Equal(t, 4, sink.Buffered())
	assert.Empty(t, w.String())
	require.Equal(t, 1, c.Len())
	assert.Equal(t, diag.BufferOverflow, c.Diagnostics()[0].Kind)

	c.Reset()
	w = &stringWriter{}
	sink, err = output.New(w, 6, false, output.WithReporter(c))
	require.NoError(t, err)
	require.NoError(t, NewRenderer(nil, Options{DrainOnOverflow: true}).Render(ctx, tmpl, sink))
	require.NoError(t, sink.Close())
	assert.Equal(t, "0123456789", w.String())
	assert.Equal(t, 0, c.Len())
}

func TestRenderDrainCannotFitOversizedText(t *testing.T) {
	tmpl := &Template{Name: "big.vm", Segments: []Segment{Text("0123456789")}}
	sink, err := output.New(&stringWriter{}, 4, false)
	require.NoError(t, err)
	err = NewRenderer(nil, Options{DrainOnOverflow: true}).Render(template.NewMapContext("big.vm", nil), tmpl, sink)
	assert.ErrorIs(t, err, output.ErrBufferOverflow)
}

type badSegment struct{}

func (badSegment) segment() {}

func TestRenderErrors(t *testing.T) {
	r := NewRenderer(nil, Options{})
	_, err := r.RenderString(nil, nil)
	assert.Error(t, err)

	_, err = r.RenderString(&Template{Name: "bad.vm", Segments: []Segment{badSegment{}}}, nil)
	assert.ErrorContains(t, err, "unsupported segment type")

	_, err = r.RenderString(&Template{Name: "bad.vm", Segments: []Segment{NewExpression(nil, "")}}, nil)
	assert.ErrorContains(t, err, "failed to evaluate expression 0 of 'bad.vm'")
}

func TestPlaceholderMode(t *testing.T) {
	for _, m := range []PlaceholderMode{PlaceholderEmpty, PlaceholderSource} {
		parsed, err := ParsePlaceholderMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	_, err := ParsePlaceholderMode("dots")
	assert.Error(t, err)
}
