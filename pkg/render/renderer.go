package render

import (
	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/wavesplatform/gorender/pkg/diag"
	"github.com/wavesplatform/gorender/pkg/output"
	"github.com/wavesplatform/gorender/pkg/template"
)

const defaultPoolSize = 16

// ErrDiagnostics is returned by strict renders that reported at least one diagnostic.
var ErrDiagnostics = errors.New("rendering reported diagnostics")

// PlaceholderMode selects what is written for expressions without a value.
type PlaceholderMode uint8

const (
	// PlaceholderEmpty writes nothing.
	PlaceholderEmpty PlaceholderMode = iota
	// PlaceholderSource writes the source text of the expression.
	PlaceholderSource
)

func (m PlaceholderMode) String() string {
	switch m {
	case PlaceholderEmpty:
		return "empty"
	case PlaceholderSource:
		return "source"
	default:
		return "unknown"
	}
}

// ParsePlaceholderMode parses the textual form returned by PlaceholderMode.String.
func ParsePlaceholderMode(s string) (PlaceholderMode, error) {
	switch s {
	case "empty":
		return PlaceholderEmpty, nil
	case "source":
		return PlaceholderSource, nil
	default:
		return 0, errors.Errorf("unknown placeholder mode '%s'", s)
	}
}

type Options struct {
	Placeholder PlaceholderMode
	// DrainOnOverflow flushes a sink without auto-flush before a write that does not fit
	// into the remaining space, so no overflow is reported for it. Writes at least as large
	// as the buffer still fail. Without it the render fails with output.ErrBufferOverflow.
	DrainOnOverflow bool
	// Strict fails the render with ErrDiagnostics if any diagnostic was reported.
	// The output is written completely in any case.
	Strict bool
}

// Renderer writes templates into sinks.
type Renderer struct {
	opts     Options
	reporter diag.Reporter
	pool     *output.Pool
}

// NewRenderer creates a renderer reporting diagnostics to r. A nil r discards them.
func NewRenderer(r diag.Reporter, opts Options) *Renderer {
	if r == nil {
		r = diag.Discard
	}
	pool, err := output.NewPool(defaultPoolSize, output.DefaultConfig(), output.WithReporter(r))
	if err != nil {
		panic(err) // default pool configuration is always valid
	}
	return &Renderer{opts: opts, reporter: r, pool: pool}
}

// Pool returns the pool of sinks used by RenderString.
func (r *Renderer) Pool() *output.Pool {
	return r.pool
}

type countingReporter struct {
	next diag.Reporter
	n    int
}

func (c *countingReporter) Report(d diag.Diagnostic) {
	c.n++
	c.next.Report(d)
}

// Render evaluates the template in ctx and writes the result into sink.
// The sink is neither flushed nor closed.
func (r *Renderer) Render(ctx template.Context, t *Template, sink *output.BufferedSink) error {
	if t == nil {
		return errors.New("nil template")
	}
	counter := &countingReporter{next: r.reporter}
	e := template.NewEvaluator(counter)
	for i, seg := range t.Segments {
		switch s := seg.(type) {
		case Text:
			if err := r.write(sink, string(s)); err != nil {
				return errors.Wrapf(err, "failed to write text segment %d of '%s'", i, t.Name)
			}
		case *Expression:
			v, err := e.Evaluate(ctx, s.Node)
			if err != nil {
				return errors.Wrapf(err, "failed to evaluate expression %d of '%s'", i, t.Name)
			}
			text := template.Format(v)
			if template.IsAbsent(v) && r.opts.Placeholder == PlaceholderSource {
				text = s.Source
			}
			if err := r.write(sink, text); err != nil {
				return errors.Wrapf(err, "failed to write expression %d of '%s'", i, t.Name)
			}
		default:
			return errors.Errorf("unsupported segment type '%T' in '%s'", seg, t.Name)
		}
	}
	if r.opts.Strict && counter.n > 0 {
		return errors.Wrapf(ErrDiagnostics, "%d diagnostics reported while rendering '%s'", counter.n, t.Name)
	}
	return nil
}

func (r *Renderer) write(sink *output.BufferedSink, text string) error {
	if r.opts.DrainOnOverflow && !sink.AutoFlush() && sink.Size() > 0 &&
		len(text) < sink.Size() && len(text) > sink.Remaining() {
		if err := sink.Flush(); err != nil {
			return err
		}
	}
	_, err := sink.WriteString(text)
	return err
}

type byteBufferWriter struct {
	*bytebufferpool.ByteBuffer
}

func (byteBufferWriter) Flush() error {
	return nil
}

// RenderString renders the template with the given variables and returns the output.
func (r *Renderer) RenderString(t *Template, vars map[string]template.Value) (string, error) {
	if t == nil {
		return "", errors.New("nil template")
	}
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	sink := r.pool.Get(byteBufferWriter{buf})
	defer r.pool.Put(sink)

	renderErr := r.Render(template.NewMapContext(t.Name, vars), t, sink)
	if err := sink.Close(); err != nil {
		return "", errors.Wrap(err, "failed to close sink")
	}
	if renderErr != nil && !errors.Is(renderErr, ErrDiagnostics) {
		return "", renderErr
	}
	return buf.String(), renderErr
}
