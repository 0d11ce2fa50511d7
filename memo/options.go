package memo

import "log/slog"

// Option configures a memoised callable.
type Option func(*options)

// options holds the resolved configuration. Zero values are safe;
// defaults are applied by newOptions:
//   - nil metrics => NoopMetrics
//   - nil logger  => slog.Default()
type options struct {
	name    string
	metrics Metrics
	logger  *slog.Logger

	// Declaration flags, read by the Class helpers only. Decorators take
	// them from Decl.
	static  bool
	private bool
}

// WithName overrides the label used in logs and metrics. Functions default to
// "Memoised(<func name>)", methods to their declared name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithMetrics routes hit/miss/failure/invalidation signals to m.
func WithMetrics(m Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Static declares a class-level member: one cache shared by every caller.
// Only meaningful for the Define* helpers.
func Static() Option {
	return func(o *options) { o.static = true }
}

// Private marks the declaration as private. Private static members are
// allowed; private instance members are rejected with ErrPrivateInstance.
// Only meaningful for the Define* helpers.
func Private() Option {
	return func(o *options) { o.private = true }
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, fn := range opts {
		if fn != nil {
			fn(o)
		}
	}
	if o.metrics == nil {
		o.metrics = NoopMetrics{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
