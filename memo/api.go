package memo

// Handle is the part of every cache view that does not depend on its flavour.
type Handle interface {
	// Clear drops every cached result.
	Clear()
	// Len returns the number of cached results.
	Len() int
}

// Cache is the view over a keyed memoisation cache.
// Caches are not safe for concurrent use.
type Cache[K comparable, A any] interface {
	Handle

	// Has reports whether a key is cached.
	//
	// Deprecated: the key must match the serialiser's output; use HasWithArgs.
	Has(key K) bool
	// HasWithArgs is like Has, but the key is derived from args.
	HasWithArgs(args A) bool

	// Delete removes a key and reports whether it was cached.
	//
	// Deprecated: use DeleteWithArgs.
	Delete(key K) bool
	// DeleteWithArgs is like Delete, but the key is derived from args.
	DeleteWithArgs(args A) bool
}

// ArglessCache is the view over an argument-independent memoised value.
type ArglessCache interface {
	Handle

	// Has reports whether the value has been computed.
	Has() bool
	// Delete resets the value and reports whether it had been computed.
	Delete() bool

	// HasWithArgs and DeleteWithArgs are Has and Delete; arguments are ignored.
	HasWithArgs(args ...any) bool
	DeleteWithArgs(args ...any) bool
}

// Compile-time checks: contexts are their own cache views.
var (
	_ Cache[string, int] = (*keyedContext[struct{}, int, int, string])(nil)
	_ ArglessCache       = (*arglessContext[struct{}, int])(nil)
)

// cacheHolder is implemented by memoised callables whose cache does not
// depend on a receiver.
type cacheHolder interface {
	handle() Handle
}

// CacheOf returns the cache behind a memoised callable, or nil if v was never
// memoised. Instance methods have one cache per receiver and always yield nil
// here; use their Cache(recv) method.
func CacheOf(v any) Handle {
	h, ok := v.(cacheHolder)
	if !ok {
		return nil
	}
	return h.handle()
}

// marker is carried by every callable produced by this package.
type marker interface {
	memoised()
}

// IsMemoised reports whether v is a memoised callable produced by this package.
func IsMemoised(v any) bool {
	_, ok := v.(marker)
	return ok
}
