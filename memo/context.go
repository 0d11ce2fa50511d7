package memo

import "errors"

// keyedContext binds one original callable, one keyed store and one
// serialiser to a receiver. It doubles as the store's public Cache view.
type keyedContext[T, A, V any, K comparable] struct {
	name  string
	recv  func() *T
	orig  Func[T, A, V]
	ser   Serialiser[*T, A, K]
	store *keyedStore[K, V]
	opt   *options
}

func newKeyedContext[T, A, V any, K comparable](
	name string, recv func() *T, orig Func[T, A, V], ser Serialiser[*T, A, K], opt *options,
) *keyedContext[T, A, V, K] {
	return &keyedContext[T, A, V, K]{
		name:  name,
		recv:  recv,
		orig:  orig,
		ser:   ser,
		store: newKeyedStore[K, V](),
		opt:   opt,
	}
}

// autoGet returns the stored result for the key derived from args, computing
// and storing it on a miss. Errors from the original are returned unchanged
// and leave the store untouched, so the next identical call retries.
// There is no in-flight deduplication: a re-entrant call for a key that is
// still being computed computes it again.
func (c *keyedContext[T, A, V, K]) autoGet(args A) (V, error) {
	recv := c.recv()
	key, err := c.keyFor(recv, args)
	if err != nil {
		var zero V
		return zero, err
	}
	if v, ok := c.store.get(key); ok {
		c.opt.metrics.Hit(c.name)
		return v, nil
	}
	c.opt.metrics.Miss(c.name)

	v, err := c.orig(recv, args)
	if err != nil {
		c.opt.metrics.Fail(c.name)
		c.opt.logger.Debug("memo: computation failed; result not cached", "name", c.name, "error", err)
		return v, err
	}
	c.store.set(key, v)
	return v, nil
}

func (c *keyedContext[T, A, V, K]) keyFor(recv *T, args A) (K, error) {
	key, err := c.ser(recv, args)
	if err != nil {
		var ke *KeyError
		if errors.As(err, &ke) {
			return key, err
		}
		return key, &KeyError{Name: c.name, Err: err}
	}
	if err := checkHashable(key); err != nil {
		return key, &KeyError{Name: c.name, Err: err}
	}
	return key, nil
}

// Has reports whether key is cached. The key must be in the serialiser's
// output format; prefer HasWithArgs.
func (c *keyedContext[T, A, V, K]) Has(key K) bool {
	return checkHashable(key) == nil && c.store.has(key)
}

// HasWithArgs is like Has, but derives the key from args.
// It returns false when no key can be derived.
func (c *keyedContext[T, A, V, K]) HasWithArgs(args A) bool {
	key, err := c.keyFor(c.recv(), args)
	if err != nil {
		return false
	}
	return c.store.has(key)
}

// Delete removes key and reports whether it was cached. Prefer DeleteWithArgs.
func (c *keyedContext[T, A, V, K]) Delete(key K) bool {
	if checkHashable(key) != nil || !c.store.delete(key) {
		return false
	}
	c.opt.metrics.Invalidate(c.name, InvalidateDelete)
	return true
}

// DeleteWithArgs is like Delete, but derives the key from args.
func (c *keyedContext[T, A, V, K]) DeleteWithArgs(args A) bool {
	key, err := c.keyFor(c.recv(), args)
	if err != nil {
		return false
	}
	return c.Delete(key)
}

// Clear drops every cached result.
func (c *keyedContext[T, A, V, K]) Clear() {
	c.store.clear()
	c.opt.metrics.Invalidate(c.name, InvalidateClear)
}

// Len returns the number of cached results.
func (c *keyedContext[T, A, V, K]) Len() int { return c.store.len() }

// arglessContext memoises a computation that does not depend on arguments.
type arglessContext[T, V any] struct {
	name  string
	recv  func() *T
	orig  func(recv *T) (V, error)
	store arglessStore[V]
	opt   *options
}

func newArglessContext[T, V any](name string, recv func() *T, orig func(*T) (V, error), opt *options) *arglessContext[T, V] {
	return &arglessContext[T, V]{name: name, recv: recv, orig: orig, opt: opt}
}

// autoGet runs the original once and returns its result from then on.
// A failed run is not recorded.
func (c *arglessContext[T, V]) autoGet() (V, error) {
	if v, ok := c.store.load(); ok {
		c.opt.metrics.Hit(c.name)
		return v, nil
	}
	c.opt.metrics.Miss(c.name)

	v, err := c.orig(c.recv())
	if err != nil {
		c.opt.metrics.Fail(c.name)
		c.opt.logger.Debug("memo: computation failed; result not cached", "name", c.name, "error", err)
		return v, err
	}
	c.store.store(v)
	return v, nil
}

// Has reports whether the value has been computed since the last clear.
func (c *arglessContext[T, V]) Has() bool { return c.store.has() }

// Delete clears the value and reports whether it had been computed.
func (c *arglessContext[T, V]) Delete() bool {
	if !c.store.delete() {
		return false
	}
	c.opt.metrics.Invalidate(c.name, InvalidateDelete)
	return true
}

// HasWithArgs is Has; args are ignored.
func (c *arglessContext[T, V]) HasWithArgs(...any) bool { return c.Has() }

// DeleteWithArgs is Delete; args are ignored.
func (c *arglessContext[T, V]) DeleteWithArgs(...any) bool { return c.Delete() }

// Clear resets the context; the next call computes again.
func (c *arglessContext[T, V]) Clear() {
	c.store.clear()
	c.opt.metrics.Invalidate(c.name, InvalidateClear)
}

// Len returns 1 once the value is computed, 0 otherwise.
func (c *arglessContext[T, V]) Len() int { return c.store.len() }
