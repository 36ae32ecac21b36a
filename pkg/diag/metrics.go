package diag

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "render"

// MetricsReporter counts diagnostics by kind and forwards them to the next reporter.
type MetricsReporter struct {
	next  Reporter
	total *prometheus.CounterVec
}

// NewMetricsReporter registers the diagnostics counter with reg and wraps next.
// A nil next discards diagnostics after counting them.
func NewMetricsReporter(reg prometheus.Registerer, next Reporter) (*MetricsReporter, error) {
	if next == nil {
		next = Discard
	}
	total := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "diagnostics_total",
			Help:      "Number of reported rendering diagnostics",
		},
		[]string{"kind"},
	)
	if err := reg.Register(total); err != nil {
		are := prometheus.AlreadyRegisteredError{}
		if !errors.As(err, &are) {
			return nil, errors.Wrap(err, "failed to register diagnostics counter")
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, errors.Errorf("diagnostics counter registered with unexpected type %T", are.ExistingCollector)
		}
		total = existing
	}
	return &MetricsReporter{next: next, total: total}, nil
}

func (r *MetricsReporter) Report(d Diagnostic) {
	r.total.WithLabelValues(d.Kind.String()).Inc()
	r.next.Report(d)
}
