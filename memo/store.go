package memo

// keyedStore maps derived keys to results of completed computations.
// It is owned by exactly one keyed context and is not safe for concurrent use.
type keyedStore[K comparable, V any] struct {
	m map[K]V
}

func newKeyedStore[K comparable, V any]() *keyedStore[K, V] {
	return &keyedStore[K, V]{m: make(map[K]V)}
}

func (s *keyedStore[K, V]) has(k K) bool {
	_, ok := s.m[k]
	return ok
}

// get returns the stored value and a presence flag.
func (s *keyedStore[K, V]) get(k K) (V, bool) {
	v, ok := s.m[k]
	return v, ok
}

// set inserts or overwrites k.
func (s *keyedStore[K, V]) set(k K, v V) { s.m[k] = v }

// delete removes k and reports whether it was present.
func (s *keyedStore[K, V]) delete(k K) bool {
	if _, ok := s.m[k]; !ok {
		return false
	}
	delete(s.m, k)
	return true
}

func (s *keyedStore[K, V]) clear() { clear(s.m) }

func (s *keyedStore[K, V]) len() int { return len(s.m) }

// arglessStore is the single implicit slot of an argument-independent
// computation. computed is true iff value holds a valid result.
type arglessStore[V any] struct {
	value    V
	computed bool
}

func (s *arglessStore[V]) has() bool { return s.computed }

func (s *arglessStore[V]) load() (V, bool) { return s.value, s.computed }

func (s *arglessStore[V]) store(v V) {
	s.value = v
	s.computed = true
}

func (s *arglessStore[V]) clear() {
	var zero V
	s.value = zero
	s.computed = false
}

// delete reports the prior has() and clears the slot.
func (s *arglessStore[V]) delete() bool {
	was := s.computed
	s.clear()
	return was
}

func (s *arglessStore[V]) len() int {
	if s.computed {
		return 1
	}
	return 0
}
