package diag

import (
	"context"
	"log/slog"

	"go.uber.org/zap"

	"github.com/wavesplatform/gorender/pkg/logging"
)

const namespace = "diagnostics"

// SlogReporter logs diagnostics as warnings.
type SlogReporter struct {
	logger *slog.Logger
}

// NewSlogReporter creates a reporter writing to the given logger.
// If logger is nil, the default slog logger is used.
func NewSlogReporter(logger *slog.Logger) *SlogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogReporter{logger: logger.With(slog.String(logging.NamespaceKey, namespace))}
}

func (r *SlogReporter) Report(d Diagnostic) {
	attrs := []slog.Attr{
		slog.String("kind", d.Kind.String()),
		slog.String("template", d.TemplateName),
	}
	if d.Side != NoSide {
		attrs = append(attrs, slog.String("side", d.Side.String()))
	}
	if d.Line > 0 {
		attrs = append(attrs, slog.Int("line", d.Line), slog.Int("column", d.Column))
	}
	r.logger.LogAttrs(context.Background(), slog.LevelWarn, d.Message, attrs...)
}

// ZapReporter logs diagnostics as warnings using a zap logger.
type ZapReporter struct {
	logger *zap.Logger
}

// NewZapReporter creates a reporter for the given zap logger. If logger is nil, the global
// zap logger is used.
func NewZapReporter(logger *zap.Logger) *ZapReporter {
	if logger == nil {
		logger = zap.L()
	}
	return &ZapReporter{logger: logger.Named(namespace)}
}

func (r *ZapReporter) Report(d Diagnostic) {
	fields := []zap.Field{
		zap.Stringer("kind", d.Kind),
		zap.String("template", d.TemplateName),
	}
	if d.Side != NoSide {
		fields = append(fields, zap.Stringer("side", d.Side))
	}
	if d.Line > 0 {
		fields = append(fields, zap.Int("line", d.Line), zap.Int("column", d.Column))
	}
	r.logger.Warn(d.Message, fields...)
}
