package output

import (
	"log/slog"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
)

const poolMetricsNamespace = "render_sink_pool"

var (
	poolAllocationsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(poolMetricsNamespace, "", "allocations_total"),
		"Number of sinks allocated by the pool", nil, nil)
	poolGetsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(poolMetricsNamespace, "", "gets_total"),
		"Number of sinks taken from the pool", nil, nil)
	poolPutsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(poolMetricsNamespace, "", "puts_total"),
		"Number of sinks returned to the pool", nil, nil)
	poolIdleDesc = prometheus.NewDesc(
		prometheus.BuildFQName(poolMetricsNamespace, "", "idle"),
		"Number of idle sinks stored in the pool", nil, nil)
)

// Pool keeps idle sinks of one configuration for reuse by subsequent renders.
// Pool is safe for concurrent use; the sinks it hands out are not.
type Pool struct {
	cfg  Config
	opts []Option

	mu   sync.Mutex
	idle []*BufferedSink
	max  int

	allocations atomic.Uint64
	gets        atomic.Uint64
	puts        atomic.Uint64
}

// NewPool creates a pool storing at most maxIdle sinks configured with cfg and opts.
func NewPool(maxIdle int, cfg Config, opts ...Option) (*Pool, error) {
	if maxIdle < 1 {
		return nil, errors.Errorf("pool size %d should be positive", maxIdle)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pool{
		cfg:  cfg,
		opts: opts,
		idle: make([]*BufferedSink, 0, maxIdle),
		max:  maxIdle,
	}, nil
}

// Get returns a sink bound to w. An idle sink is recycled when available,
// otherwise a new one is allocated.
func (p *Pool) Get(w Writer) *BufferedSink {
	p.gets.Inc()
	p.mu.Lock()
	if l := len(p.idle); l > 0 {
		s := p.idle[l-1]
		p.idle[l-1] = nil
		p.idle = p.idle[:l-1]
		p.mu.Unlock()
		s.Recycle(w)
		return s
	}
	p.mu.Unlock()
	p.allocations.Inc()
	s, err := NewWithConfig(w, p.cfg, p.opts...)
	if err != nil {
		panic(err) // configuration validated by NewPool
	}
	return s
}

// Put returns s to the pool. Buffered data is discarded and the writer is released.
// Sinks with a different configuration or beyond the pool capacity are dropped.
func (p *Pool) Put(s *BufferedSink) {
	if s == nil {
		return
	}
	p.puts.Inc()
	if s.Config() != p.cfg {
		slog.Warn("Sink pool received a sink with foreign configuration",
			slog.Int("expected_size", p.cfg.Size), slog.Int("size", s.Size()))
		return
	}
	s.Recycle(nil)
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.idle) >= p.max {
		return
	}
	p.idle = append(p.idle, s)
}

// Stat returns the number of allocations, puts and gets made so far.
func (p *Pool) Stat() (allocations, puts, gets uint64) {
	return p.allocations.Load(), p.puts.Load(), p.gets.Load()
}

// Idle returns the number of sinks waiting in the pool.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

func (p *Pool) Describe(ch chan<- *prometheus.Desc) {
	ch <- poolAllocationsDesc
	ch <- poolGetsDesc
	ch <- poolPutsDesc
	ch <- poolIdleDesc
}

func (p *Pool) Collect(ch chan<- prometheus.Metric) {
	allocations, puts, gets := p.Stat()
	ch <- prometheus.MustNewConstMetric(poolAllocationsDesc, prometheus.CounterValue, float64(allocations))
	ch <- prometheus.MustNewConstMetric(poolGetsDesc, prometheus.CounterValue, float64(gets))
	ch <- prometheus.MustNewConstMetric(poolPutsDesc, prometheus.CounterValue, float64(puts))
	ch <- prometheus.MustNewConstMetric(poolIdleDesc, prometheus.GaugeValue, float64(p.Idle()))
}
