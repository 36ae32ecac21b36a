package output

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/wavesplatform/gorender/pkg/diag"
)

// DefaultSize is the buffer size used by NewDefault.
const DefaultSize = 8 * 1024

var (
	// ErrBufferOverflow is returned by writes that do not fit into a sink without auto-flush.
	ErrBufferOverflow = errors.New("buffer overflow")
	// ErrInvalidConfiguration is returned when a sink is configured with a negative size.
	ErrInvalidConfiguration = errors.New("invalid buffer configuration")

	errNoWriter = errors.New("no writer bound to the sink")
)

//go:generate mockgen -source sink.go -destination mock/writer.go -package mock Writer

// Writer is the destination of buffered output.
// The sink never closes the writer, it only writes to it and flushes it on Close.
type Writer interface {
	io.Writer
	Flush() error
}

// Config is the buffering configuration of a sink.
// Size 0 makes the sink unbuffered: every write goes directly to the writer.
type Config struct {
	Size      int
	AutoFlush bool
}

// DefaultConfig returns the configuration of sinks created by NewDefault.
func DefaultConfig() Config {
	return Config{Size: DefaultSize, AutoFlush: true}
}

// Validate returns ErrInvalidConfiguration if the size is negative.
func (c Config) Validate() error {
	if c.Size < 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "buffer size %d is negative", c.Size)
	}
	return nil
}

// Option configures a sink at construction.
type Option func(s *BufferedSink)

// WithReporter sets the reporter that receives BufferOverflow diagnostics.
func WithReporter(r diag.Reporter) Option {
	return func(s *BufferedSink) {
		if r != nil {
			s.reporter = r
		}
	}
}

// WithName sets the name used as the template name of the sink's diagnostics.
func WithName(name string) Option {
	return func(s *BufferedSink) {
		s.name = name
	}
}

// BufferedSink accumulates output and passes it to a Writer in batches.
//
// When the buffer gets full a sink with auto-flush writes the buffered data to the writer,
// while a sink without auto-flush refuses the write with ErrBufferOverflow and leaves the
// buffered data untouched. Writes at least as large as the buffer bypass it on auto-flush
// sinks after the buffered data is flushed, and overflow sinks without auto-flush.
//
// A BufferedSink is not safe for concurrent use.
type BufferedSink struct {
	w         Writer
	buf       []byte
	n         int
	size      int
	autoFlush bool
	flushed   bool
	reporter  diag.Reporter
	name      string
	scratch   [utf8.UTFMax]byte
}

// New creates a sink writing to w through a buffer of the given size.
func New(w Writer, size int, autoFlush bool, opts ...Option) (*BufferedSink, error) {
	return NewWithConfig(w, Config{Size: size, AutoFlush: autoFlush}, opts...)
}

// NewWithConfig creates a sink with the given configuration.
func NewWithConfig(w Writer, cfg Config, opts ...Option) (*BufferedSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &BufferedSink{reporter: diag.Discard}
	for _, opt := range opts {
		opt(s)
	}
	s.init(w, cfg)
	return s, nil
}

// NewDefault creates an auto-flushing sink with a buffer of DefaultSize bytes.
func NewDefault(w Writer, opts ...Option) *BufferedSink {
	s, err := NewWithConfig(w, DefaultConfig(), opts...)
	if err != nil {
		panic(err) // default configuration is always valid
	}
	return s
}

func (s *BufferedSink) init(w Writer, cfg Config) {
	if cfg.Size > len(s.buf) {
		s.buf = make([]byte, cfg.Size)
	}
	s.w = w
	s.size = cfg.Size
	s.autoFlush = cfg.AutoFlush
	s.n = 0
	s.flushed = false
}

// Reset rebinds the sink to w and changes its configuration. The buffer is reallocated only
// if the new size is larger than the current allocation. Buffered data is discarded.
func (s *BufferedSink) Reset(w Writer, size int, autoFlush bool) error {
	cfg := Config{Size: size, AutoFlush: autoFlush}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.init(w, cfg)
	return nil
}

// Recycle rebinds the sink to w, discards buffered data and resets the flushed flag.
// The buffer is kept.
func (s *BufferedSink) Recycle(w Writer) {
	s.w = w
	s.flushed = false
	s.Clear()
}

// Size returns the capacity of the buffer in bytes.
func (s *BufferedSink) Size() int {
	return s.size
}

// AutoFlush reports whether a full buffer is flushed instead of refusing writes.
func (s *BufferedSink) AutoFlush() bool {
	return s.autoFlush
}

// Config returns the current configuration of the sink.
func (s *BufferedSink) Config() Config {
	return Config{Size: s.size, AutoFlush: s.autoFlush}
}

// Buffered returns the number of bytes waiting in the buffer.
func (s *BufferedSink) Buffered() int {
	return s.n
}

// Flushed reports whether the buffer has been flushed since creation or the last Recycle.
func (s *BufferedSink) Flushed() bool {
	return s.flushed
}

// Remaining returns the free space of the buffer.
func (s *BufferedSink) Remaining() int {
	return s.size - s.n
}

// Clear discards buffered data without writing it.
func (s *BufferedSink) Clear() {
	s.n = 0
}

// Flush writes buffered data to the writer. The writer itself is not flushed.
func (s *BufferedSink) Flush() error {
	if s.size == 0 {
		return nil
	}
	s.flushed = true
	if s.n == 0 {
		return nil
	}
	if s.w == nil {
		return errNoWriter
	}
	if _, err := s.w.Write(s.buf[:s.n]); err != nil {
		return errors.Wrap(err, "failed to flush buffer")
	}
	s.n = 0
	return nil
}

// Close flushes the buffer and then the writer. It does nothing if no writer is bound.
func (s *BufferedSink) Close() error {
	if s.w == nil {
		return nil
	}
	if err := s.Flush(); err != nil {
		return err
	}
	if err := s.w.Flush(); err != nil {
		return errors.Wrap(err, "failed to flush writer")
	}
	return nil
}

// WriteByte buffers a single byte.
func (s *BufferedSink) WriteByte(c byte) error {
	if s.size == 0 {
		s.scratch[0] = c
		_, err := s.forward(s.scratch[:1])
		return err
	}
	if s.n >= s.size {
		if err := s.overflow(1); err != nil {
			return err
		}
	}
	s.buf[s.n] = c
	s.n++
	if s.n >= s.size && s.autoFlush {
		return s.Flush()
	}
	return nil
}

// WriteRune buffers the UTF-8 encoding of r.
func (s *BufferedSink) WriteRune(r rune) (int, error) {
	if r >= 0 && r < utf8.RuneSelf {
		if err := s.WriteByte(byte(r)); err != nil {
			return 0, err
		}
		return 1, nil
	}
	n := utf8.EncodeRune(s.scratch[:], r)
	return s.Write(s.scratch[:n])
}

// Write buffers p. On a sink without auto-flush either all of p is buffered or nothing is,
// and writes at least as large as the buffer always fail.
func (s *BufferedSink) Write(p []byte) (int, error) {
	if s.size == 0 {
		return s.forward(p)
	}
	if len(p) == 0 {
		return 0, nil
	}
	if !s.autoFlush {
		if len(p) >= s.size || len(p) > s.size-s.n {
			return 0, s.overflow(len(p))
		}
		s.n += copy(s.buf[s.n:s.size], p)
		return len(p), nil
	}
	if len(p) >= s.size {
		if err := s.Flush(); err != nil {
			return 0, err
		}
		return s.forward(p)
	}
	written := 0
	for written < len(p) {
		d := copy(s.buf[s.n:s.size], p[written:])
		s.n += d
		written += d
		if s.n >= s.size {
			if err := s.Flush(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

// WriteString buffers str under the same rules as Write.
func (s *BufferedSink) WriteString(str string) (int, error) {
	if s.size == 0 {
		return s.forwardString(str)
	}
	if len(str) == 0 {
		return 0, nil
	}
	if !s.autoFlush {
		if len(str) >= s.size || len(str) > s.size-s.n {
			return 0, s.overflow(len(str))
		}
		s.n += copy(s.buf[s.n:s.size], str)
		return len(str), nil
	}
	if len(str) >= s.size {
		if err := s.Flush(); err != nil {
			return 0, err
		}
		return s.forwardString(str)
	}
	written := 0
	for written < len(str) {
		d := copy(s.buf[s.n:s.size], str[written:])
		s.n += d
		written += d
		if s.n >= s.size {
			if err := s.Flush(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func (s *BufferedSink) forward(p []byte) (int, error) {
	if s.w == nil {
		return 0, errNoWriter
	}
	n, err := s.w.Write(p)
	if err != nil {
		return n, errors.Wrap(err, "failed to write")
	}
	return n, nil
}

func (s *BufferedSink) forwardString(str string) (int, error) {
	if s.w == nil {
		return 0, errNoWriter
	}
	n, err := io.WriteString(s.w, str)
	if err != nil {
		return n, errors.Wrap(err, "failed to write")
	}
	return n, nil
}

// overflow makes room for the pending write or refuses it, depending on the auto-flush mode.
func (s *BufferedSink) overflow(requested int) error {
	if s.autoFlush {
		return s.Flush()
	}
	msg := fmt.Sprintf("Buffer overflow: %d bytes requested, %d of %d bytes available.",
		requested, s.size-s.n, s.size)
	s.reporter.Report(diag.Diagnostic{
		Kind:         diag.BufferOverflow,
		Message:      msg,
		TemplateName: s.name,
	})
	return errors.Wrapf(ErrBufferOverflow, "%d bytes requested, %d available", requested, s.size-s.n)
}
