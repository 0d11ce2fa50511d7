package memo

// InvalidateReason explains why cached results were dropped.
type InvalidateReason int

const (
	// InvalidateDelete: a single entry was removed through Delete/DeleteWithArgs.
	InvalidateDelete InvalidateReason = iota
	// InvalidateClear: the whole cache was cleared.
	InvalidateClear
)

// Metrics exposes memoisation observability hooks. Every signal carries the
// name of the memoised callable (see WithName).
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit(name string)
	Miss(name string)
	// Fail is signalled when the original callable returns an error. The
	// result is not cached.
	Fail(name string)
	Invalidate(name string, reason InvalidateReason)
}

// NoopMetrics is a drop-in Metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) Hit(string)                          {}
func (NoopMetrics) Miss(string)                         {}
func (NoopMetrics) Fail(string)                         {}
func (NoopMetrics) Invalidate(string, InvalidateReason) {}

// Ensure NoopMetrics implements the Metrics interface at compile time.
var _ Metrics = NoopMetrics{}
