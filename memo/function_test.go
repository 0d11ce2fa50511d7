package memo

import (
	"errors"
	"strings"
	"testing"
)

type result struct{ n int }

// recordingMetrics counts signals; not safe for concurrent use.
type recordingMetrics struct {
	hits, misses, fails int
	deletes, clears     int
	names               map[string]bool
}

func (m *recordingMetrics) note(name string) {
	if m.names == nil {
		m.names = make(map[string]bool)
	}
	m.names[name] = true
}

func (m *recordingMetrics) Hit(name string)  { m.note(name); m.hits++ }
func (m *recordingMetrics) Miss(name string) { m.note(name); m.misses++ }
func (m *recordingMetrics) Fail(name string) { m.note(name); m.fails++ }
func (m *recordingMetrics) Invalidate(name string, r InvalidateReason) {
	m.note(name)
	if r == InvalidateClear {
		m.clears++
		return
	}
	m.deletes++
}

func double(n int) (int, error) { return 2 * n, nil }

// The original runs once per key and every call returns the very same result.
func TestFunction_AtMostOncePerKey(t *testing.T) {
	t.Parallel()

	calls := 0
	f := MemoiseFunction(func(n int) (*result, error) {
		calls++
		return &result{n: n}, nil
	})

	first, err := f.Call(1)
	if err != nil {
		t.Fatalf("Call error: %v", err)
	}
	for range 5 {
		got, _ := f.Call(1)
		if got != first {
			t.Fatalf("want identical result %p, got %p", first, got)
		}
	}
	if calls != 1 {
		t.Fatalf("calls want 1, got %d", calls)
	}
}

// (1,1), (1,2), (1,1) computes twice.
func TestFunction_TupleKeys(t *testing.T) {
	t.Parallel()

	calls := 0
	add := MemoiseFunction(func(a Pair[int, int]) (int, error) {
		calls++
		return a.First + a.Second, nil
	})

	for _, args := range []Pair[int, int]{Args2(1, 1), Args2(1, 2), Args2(1, 1)} {
		if _, err := add.Call(args); err != nil {
			t.Fatalf("Call%v error: %v", args.Args(), err)
		}
	}
	if calls != 2 {
		t.Fatalf("calls want 2, got %d", calls)
	}
	if add.Cache().Len() != 2 {
		t.Fatalf("Len want 2, got %d", add.Cache().Len())
	}
	if !add.Cache().Has(`[1,2]`) {
		t.Fatal(`raw key [1,2] must be cached`)
	}
}

// Errors pass through unchanged and are never cached.
func TestFunction_ErrorsNotCached(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	calls := 0
	f := MemoiseFunction(func(n int) (int, error) {
		calls++
		if calls == 1 {
			return -1, boom
		}
		return n, nil
	})

	v, err := f.Call(3)
	if !errors.Is(err, boom) || v != -1 {
		t.Fatalf("want (-1, boom), got (%v, %v)", v, err)
	}
	if f.Cache().HasWithArgs(3) {
		t.Fatal("failed result must not be cached")
	}
	if v, err = f.Call(3); err != nil || v != 3 {
		t.Fatalf("retry want (3, nil), got (%v, %v)", v, err)
	}
	_, _ = f.Call(3)
	if calls != 2 {
		t.Fatalf("calls want 2, got %d", calls)
	}
}

// A panicking computation leaves nothing behind.
func TestFunction_PanicNotCached(t *testing.T) {
	t.Parallel()

	calls := 0
	f := MemoiseFunction(func(n int) (int, error) {
		calls++
		if calls == 1 {
			panic("first call panics")
		}
		return n, nil
	})

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("panic must propagate")
			}
		}()
		_, _ = f.Call(1)
	}()
	if f.Cache().Len() != 0 {
		t.Fatalf("Len want 0 after panic, got %d", f.Cache().Len())
	}
	if v, err := f.Call(1); err != nil || v != 1 {
		t.Fatalf("want (1, nil), got (%v, %v)", v, err)
	}
}

// Key derivation failures skip the computation.
func TestFunction_KeyError(t *testing.T) {
	t.Parallel()

	calls := 0
	f := MemoiseFunction(func(chan int) (int, error) {
		calls++
		return 0, nil
	}, WithName("chans"))

	_, err := f.Call(make(chan int))
	var ke *KeyError
	if !errors.As(err, &ke) {
		t.Fatalf("want *KeyError, got %T %v", err, err)
	}
	if ke.Name != "chans" {
		t.Fatalf("KeyError.Name want chans, got %q", ke.Name)
	}
	if calls != 0 {
		t.Fatalf("original must not run, calls=%d", calls)
	}
	if f.Cache().HasWithArgs(make(chan int)) || f.Cache().DeleteWithArgs(make(chan int)) {
		t.Fatal("HasWithArgs/DeleteWithArgs must be false when no key can be derived")
	}
}

// has/delete round trip: after delete the next call computes a new result.
func TestFunction_HasDeleteRoundTrip(t *testing.T) {
	t.Parallel()

	m := &recordingMetrics{}
	f := MemoiseFunction(func(s string) (*result, error) {
		return &result{n: len(s)}, nil
	}, WithMetrics(m))
	c := f.Cache()

	if c.HasWithArgs("ab") {
		t.Fatal("fresh cache must be empty")
	}
	first, _ := f.Call("ab")
	if !c.HasWithArgs("ab") || !c.Has(`["ab"]`) {
		t.Fatal("result must be cached under [\"ab\"]")
	}
	if !c.DeleteWithArgs("ab") {
		t.Fatal("DeleteWithArgs must report the cached entry")
	}
	if c.DeleteWithArgs("ab") || c.Delete(`["ab"]`) {
		t.Fatal("second delete must be false")
	}
	second, _ := f.Call("ab")
	if second == first {
		t.Fatal("after delete a new result must be computed")
	}

	_, _ = f.Call("ab")
	_, _ = f.Call("cd")
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Len want 0 after Clear, got %d", c.Len())
	}

	if m.misses != 3 || m.hits != 1 || m.deletes != 1 || m.clears != 1 || m.fails != 0 {
		t.Fatalf("metrics: %+v", *m)
	}
}

// A re-entrant call for a key still being computed computes it again.
func TestFunction_NoInFlightDedup(t *testing.T) {
	t.Parallel()

	var f *Function[int, int, string]
	calls := 0
	f = MemoiseFunction(func(n int) (int, error) {
		calls++
		if calls == 1 {
			inner, err := f.Call(n)
			return inner + 1, err
		}
		return 10, nil
	})

	v, err := f.Call(1)
	if err != nil || v != 11 {
		t.Fatalf("want (11, nil), got (%v, %v)", v, err)
	}
	if calls != 2 {
		t.Fatalf("calls want 2, got %d", calls)
	}
	if v, _ = f.Call(1); v != 11 {
		t.Fatalf("outer result must win, got %d", v)
	}
}

func TestFunction_KeyFuncs(t *testing.T) {
	t.Parallel()

	calls := 0
	sq := func(n int) (int, error) { calls++; return n * n, nil }

	id := MemoiseFunctionWith(sq, IdentityKey[int])
	_, _ = id.Call(4)
	if !id.Cache().Has(4) {
		t.Fatal("identity key 4 must be cached")
	}

	hashed := MemoiseFunctionWith(sq, HashedKey(MsgpackKey[int]))
	_, _ = hashed.Call(4)
	_, _ = hashed.Call(4)
	if !hashed.Cache().HasWithArgs(4) || hashed.Cache().Len() != 1 {
		t.Fatal("hashed key must be cached once")
	}
	if calls != 2 {
		t.Fatalf("calls want 2, got %d", calls)
	}

	// Pointer arguments compare by identity.
	type box struct{ v int }
	byPtr := MemoiseFunctionWith(func(b *box) (int, error) { return b.v, nil }, IdentityKey[*box])
	a, b := &box{1}, &box{1}
	_, _ = byPtr.Call(a)
	if byPtr.Cache().HasWithArgs(b) {
		t.Fatal("distinct pointers must not share a key")
	}
}

func TestFunction_Names(t *testing.T) {
	t.Parallel()

	if got := MemoiseFunction(double).Name(); got != "Memoised(memo.double)" {
		t.Fatalf("want Memoised(memo.double), got %q", got)
	}
	closure := MemoiseFunction(func(int) (int, error) { return 0, nil })
	if !strings.HasPrefix(closure.Name(), "Memoised(memo.TestFunction_Names.func") {
		t.Fatalf("unexpected closure label %q", closure.Name())
	}
	if got := MemoiseFunction(double, WithName("dbl")).Name(); got != "dbl" {
		t.Fatalf("WithName must win, got %q", got)
	}
	lazy := MemoiseArglessFunction(func() (int, error) { return 0, nil })
	if !strings.HasPrefix(lazy.Name(), "MemoisedArgless(memo.") {
		t.Fatalf("unexpected argless label %q", lazy.Name())
	}
}

func TestFunction_FuncValue(t *testing.T) {
	t.Parallel()

	f := MemoiseFunction(double)
	fn := f.Func()
	if v, _ := fn(21); v != 42 {
		t.Fatalf("want 42, got %d", v)
	}
	if !f.Cache().HasWithArgs(21) {
		t.Fatal("calls through Func must use the cache")
	}
}

// The argless variant computes once until cleared.
func TestLazy(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	calls := 0
	l := MemoiseArglessFunction(func() (*result, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return &result{n: calls}, nil
	})

	if _, err := l.Get(); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if l.Cache().Has() {
		t.Fatal("failed run must not be recorded")
	}
	first, err := l.Get()
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	again, _ := l.Func()()
	if again != first || calls != 2 {
		t.Fatalf("want cached %p with 2 calls, got %p with %d", first, again, calls)
	}
	if l.Cache().Len() != 1 {
		t.Fatalf("Len want 1, got %d", l.Cache().Len())
	}

	l.Cache().Clear()
	if l.Cache().Has() {
		t.Fatal("Has must be false after Clear")
	}
	third, _ := l.Get()
	if third == first || calls != 3 {
		t.Fatalf("Clear must force a recomputation, calls=%d", calls)
	}
	if !l.Cache().Delete() || l.Cache().Delete() {
		t.Fatal("Delete must report the prior state")
	}
}

func TestCacheOfAndIsMemoised(t *testing.T) {
	t.Parallel()

	f := MemoiseFunction(double)
	l := MemoiseArglessFunction(func() (int, error) { return 1, nil })

	if CacheOf(f) != Handle(f.Cache()) {
		t.Fatal("CacheOf must return the function's cache")
	}
	if CacheOf(l) != Handle(l.Cache()) {
		t.Fatal("CacheOf must return the lazy value's cache")
	}
	if CacheOf(double) != nil || CacheOf(42) != nil || CacheOf(nil) != nil {
		t.Fatal("CacheOf must be nil for anything never memoised")
	}
	if !IsMemoised(f) || !IsMemoised(l) {
		t.Fatal("memoised callables must carry the marker")
	}
	if IsMemoised(double) || IsMemoised(nil) {
		t.Fatal("plain values must not carry the marker")
	}

	_, _ = f.Call(1)
	CacheOf(f).Clear()
	if f.Cache().Len() != 0 {
		t.Fatal("Clear through CacheOf must empty the cache")
	}
}

// Strings that are not valid UTF-8 would collapse to one JSON key, so the
// default key rejects them; msgpack keys keep them apart.
func TestFunction_InvalidUTF8Keys(t *testing.T) {
	t.Parallel()

	calls := 0
	echo := func(s string) (string, error) {
		calls++
		return s, nil
	}

	f := MemoiseFunction(echo)
	for _, s := range []string{"id-\xff", "id-\xfe"} {
		_, err := f.Call(s)
		var ke *KeyError
		if !errors.As(err, &ke) || !errors.Is(err, ErrInvalidUTF8) {
			t.Fatalf("Call(%q) want KeyError wrapping ErrInvalidUTF8, got %v", s, err)
		}
		if f.Cache().HasWithArgs(s) {
			t.Fatalf("HasWithArgs(%q) must be false", s)
		}
	}
	if calls != 0 || f.Cache().Len() != 0 {
		t.Fatalf("rejected calls must not compute: calls=%d len=%d", calls, f.Cache().Len())
	}

	// A valid U+FFFD and literal escape sequences stay distinct keys.
	for _, s := range []string{"id-\uFFFD", `id-\ufffd`, `id-\\ufffd`} {
		v, err := f.Call(s)
		if err != nil || v != s {
			t.Fatalf("Call(%q) want (%q, nil), got (%q, %v)", s, s, v, err)
		}
	}
	if calls != 3 {
		t.Fatalf("calls want 3, got %d", calls)
	}

	calls = 0
	raw := MemoiseFunctionWith(echo, MsgpackKey[string])
	a, _ := raw.Call("id-\xff")
	b, _ := raw.Call("id-\xfe")
	if a != "id-\xff" || b != "id-\xfe" || calls != 2 {
		t.Fatalf("msgpack keys must compute twice: a=%q b=%q calls=%d", a, b, calls)
	}
}

// Interface keys holding unhashable values fail as key errors.
func TestFunction_IdentityUnhashable(t *testing.T) {
	t.Parallel()

	calls := 0
	f := MemoiseFunctionWith(func(any) (int, error) {
		calls++
		return calls, nil
	}, IdentityKey[any])

	_, err := f.Call([]int{1})
	var ke *KeyError
	if !errors.As(err, &ke) || !errors.Is(err, ErrUnhashable) {
		t.Fatalf("want KeyError wrapping ErrUnhashable, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("original must not run, calls=%d", calls)
	}
	c := f.Cache()
	if c.HasWithArgs([]int{1}) || c.DeleteWithArgs([]int{1}) || c.Has([]int{1}) || c.Delete([]int{1}) {
		t.Fatal("unhashable keys are never cached")
	}

	_, _ = f.Call(3)
	_, _ = f.Call("x")
	_, _ = f.Call(3)
	if calls != 2 || !c.Has(3) || c.Len() != 2 {
		t.Fatalf("hashable dynamic values must be cached: calls=%d len=%d", calls, c.Len())
	}

	type wrapped struct{ V any }
	w := MemoiseFunctionWith(func(wrapped) (int, error) { return 0, nil }, IdentityKey[wrapped])
	if _, err := w.Call(wrapped{V: map[string]int{}}); !errors.Is(err, ErrUnhashable) {
		t.Fatalf("struct holding a map want ErrUnhashable, got %v", err)
	}
	if _, err := w.Call(wrapped{V: 1}); err != nil {
		t.Fatalf("struct holding an int must be usable: %v", err)
	}

	// Custom key functions are held to the same rule.
	custom := MemoiseFunctionWith(double, func(n int) (any, error) { return []int{n}, nil })
	if _, err := custom.Call(1); !errors.Is(err, ErrUnhashable) {
		t.Fatalf("custom unhashable key want ErrUnhashable, got %v", err)
	}
}

// Argless caches answer the keyed cache's WithArgs calls.
func TestLazy_WithArgsAliases(t *testing.T) {
	t.Parallel()

	l := MemoiseArglessFunction(func() (int, error) { return 1, nil })
	c := l.Cache()
	if c.HasWithArgs() || c.DeleteWithArgs("ignored") {
		t.Fatal("fresh argless cache must be empty")
	}
	_, _ = l.Get()
	if !c.HasWithArgs(1, "two") {
		t.Fatal("HasWithArgs must ignore its arguments")
	}
	if !c.DeleteWithArgs(3) || c.Has() {
		t.Fatal("DeleteWithArgs must reset the value")
	}
}
