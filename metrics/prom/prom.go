// Package prom exports memo metrics to Prometheus.
package prom

import (
	"github.com/IvanBrykalov/memo/memo"
	"github.com/prometheus/client_golang/prometheus"
)

// Adapter implements memo.Metrics and exports Prometheus counters labelled
// with the memoised callable's name.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits    *prometheus.CounterVec
	misses  *prometheus.CounterVec
	errors  *prometheus.CounterVec
	invalid *prometheus.CounterVec
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}, labels)
	}
	a := &Adapter{
		hits:    counter("hits_total", "Calls served from the cache", "name"),
		misses:  counter("misses_total", "Calls that ran the original callable", "name"),
		errors:  counter("errors_total", "Computations that failed and were not cached", "name"),
		invalid: counter("invalidations_total", "Cache invalidations by reason", "name", "reason"),
	}
	reg.MustRegister(a.hits, a.misses, a.errors, a.invalid)
	return a
}

// Hit increments the hit counter of name.
func (a *Adapter) Hit(name string) { a.hits.WithLabelValues(name).Inc() }

// Miss increments the miss counter of name.
func (a *Adapter) Miss(name string) { a.misses.WithLabelValues(name).Inc() }

// Fail increments the failed computation counter of name.
func (a *Adapter) Fail(name string) { a.errors.WithLabelValues(name).Inc() }

// Invalidate increments the invalidation counter with a reason label.
func (a *Adapter) Invalidate(name string, r memo.InvalidateReason) {
	a.invalid.WithLabelValues(name, reason(r)).Inc()
}

// reason maps InvalidateReason to a stable label value.
func reason(r memo.InvalidateReason) string {
	switch r {
	case memo.InvalidateClear:
		return "clear"
	default:
		return "delete"
	}
}

// Compile-time check: ensure Adapter implements memo.Metrics.
var _ memo.Metrics = (*Adapter)(nil)
