// Package memo memoises the return values of functions and methods: the
// wrapped callable computes its result once per distinct argument signature
// (or once ever, for argument-independent callables) and serves the cached
// result thereafter. The cache stays reachable for inspection and manual
// invalidation.
//
// Design
//
//   - Keys: a Serialiser maps (receiver, arguments) to a comparable key. The
//     default encodes the positional argument list as JSON, so Args2(1, 1)
//     keys as `[1,1]`. Identity, Msgpack and Hashed are provided; custom
//     serialisers may read receiver state and must be pure.
//
//   - Storage: a keyed cache is a plain map from key to result; an argless
//     cache is a single slot with a computed flag. There is no eviction and
//     no expiry. Entries leave only through Delete, DeleteWithArgs or Clear.
//
//   - Failures: an error returned by the original is passed through and
//     nothing is stored, so the next identical call retries. A panic
//     propagates the same way.
//
//   - Binding: static methods get one context at declaration time. Instance
//     methods get one context per instance, created by an initializer that
//     runs when the instance is initialised (see Class.Init). Contexts live in
//     a side table keyed by weak pointers; instances are never modified and
//     their entries go away with them.
//
//   - Overrides: a derived class that redeclares a memoised method without
//     memoising it fails initialisation with an *IntegrityError.
//
//   - Metrics: WithMetrics receives Hit/Miss/Fail/Invalidate signals, labelled
//     with the callable's name. NoopMetrics is the default; metrics/prom
//     exports them to Prometheus.
//
// Functions
//
//	fib := memo.MemoiseFunction(func(n int) (int, error) { ... })
//	v, err := fib.Call(40)
//	fib.Cache().HasWithArgs(40) // true
//
//	cfg := memo.MemoiseArglessFunction(loadConfig)
//	c, err := cfg.Get() // loadConfig runs once
//
// Methods
//
//	type Shape struct{ W, H int }
//
//	var (
//		shapes = memo.NewClass[Shape]("Shape")
//		area   = memo.Must(memo.DefineMethod(shapes, "Area",
//			func(s *Shape, scale int) (int, error) { return s.W * s.H * scale, nil }))
//	)
//
//	func NewShape(w, h int) *Shape {
//		s := &Shape{W: w, H: h}
//		shapes.MustInit(s)
//		return s
//	}
//
//	func (s *Shape) Area(scale int) (int, error) { return area.Call(s, scale) }
//
// Other declaration mechanisms can drive the decorators directly: Memoise,
// MemoiseWith, MemoiseIdentity and MemoiseAll take the original callable and
// a Decl describing the declaration site.
//
// Thread-safety
//
// A single cache is not safe for concurrent use and performs no in-flight
// deduplication. Confine each memoised free function and each instance to one
// goroutine, or synchronise externally. Declaring and initialising distinct
// instances concurrently is safe.
package memo
