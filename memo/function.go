package memo

import "github.com/IvanBrykalov/memo/internal/util"

// Function is a memoised free function. It computes fn once per distinct key
// and serves the stored result thereafter.
type Function[A, V any, K comparable] struct {
	ctx *keyedContext[struct{}, A, V, K]
}

// MemoiseFunction memoises fn, keyed by the JSON encoding of its arguments
// (see JSONKey). Multi-argument functions take a Pair, Triple or any ArgList.
//
//	area := memo.MemoiseFunction(func(a memo.Pair[int, int]) (int, error) {
//		return a.First * a.Second, nil
//	})
//	v, err := area.Call(memo.Args2(3, 4))
func MemoiseFunction[A, V any](fn func(A) (V, error), opts ...Option) *Function[A, V, string] {
	return MemoiseFunctionWith(fn, JSONKey[A], opts...)
}

// MemoiseFunctionWith memoises fn using key to derive cache keys.
func MemoiseFunctionWith[A, V any, K comparable](fn func(A) (V, error), key KeyFunc[A, K], opts ...Option) *Function[A, V, K] {
	o := newOptions(opts)
	if o.name == "" {
		o.name = util.Label("Memoised", util.FuncName(fn))
	}
	orig := func(_ *struct{}, args A) (V, error) { return fn(args) }
	ser := ArgsOnly[*struct{}](key)
	return &Function[A, V, K]{
		ctx: newKeyedContext(o.name, noReceiver, orig, ser, o),
	}
}

// Call returns the memoised result for args.
func (f *Function[A, V, K]) Call(args A) (V, error) { return f.ctx.autoGet(args) }

// Func returns Call as a plain function value.
func (f *Function[A, V, K]) Func() func(A) (V, error) { return f.Call }

// Cache returns the function's cache.
func (f *Function[A, V, K]) Cache() Cache[K, A] { return f.ctx }

// Name returns the label used in logs and metrics.
func (f *Function[A, V, K]) Name() string { return f.ctx.name }

func (f *Function[A, V, K]) handle() Handle { return f.ctx }

func (*Function[A, V, K]) memoised() {}

// Lazy is a memoised argument-free function: a lazily evaluated value.
type Lazy[V any] struct {
	ctx *arglessContext[struct{}, V]
}

// MemoiseArglessFunction memoises fn disregarding arguments. fn runs on the
// first Get and, unless it fails, never again until the cache is cleared.
func MemoiseArglessFunction[V any](fn func() (V, error), opts ...Option) *Lazy[V] {
	o := newOptions(opts)
	if o.name == "" {
		o.name = util.Label("MemoisedArgless", util.FuncName(fn))
	}
	orig := func(*struct{}) (V, error) { return fn() }
	return &Lazy[V]{ctx: newArglessContext(o.name, noReceiver, orig, o)}
}

// Get returns the value, computing it on first use.
func (l *Lazy[V]) Get() (V, error) { return l.ctx.autoGet() }

// Func returns Get as a plain function value.
func (l *Lazy[V]) Func() func() (V, error) { return l.Get }

// Cache returns the value's cache.
func (l *Lazy[V]) Cache() ArglessCache { return l.ctx }

// Name returns the label used in logs and metrics.
func (l *Lazy[V]) Name() string { return l.ctx.name }

func (l *Lazy[V]) handle() Handle { return l.ctx }

func (*Lazy[V]) memoised() {}

// noReceiver is the receiver of free functions.
func noReceiver() *struct{} { return nil }
