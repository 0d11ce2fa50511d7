package memo

import (
	"fmt"
	"reflect"
	"runtime"
	"weak"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/puzpuzpuz/xsync/v3"
)

// Func is the shape of a memoisable method on *T.
type Func[T, A, V any] func(recv *T, args A) (V, error)

// Kind is the kind of class member a declaration describes.
type Kind int

const (
	KindMethod Kind = iota
	KindGetter
	KindSetter
	KindField
	KindClass
)

func (k Kind) String() string {
	switch k {
	case KindMethod:
		return "method"
	case KindGetter:
		return "getter"
	case KindSetter:
		return "setter"
	case KindField:
		return "field"
	case KindClass:
		return "class"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Scope resolves member names for an instance under initialisation, starting
// at the instance's most-derived class.
type Scope interface {
	// Class names the most-derived class.
	Class() string
	// Lookup returns the callable currently declared under name.
	Lookup(name string) (any, bool)
}

// Initializer runs once per declaration for every new instance, before the
// instance is handed to user code.
type Initializer[T any] func(recv *T, scope Scope) error

// Decl describes one declaration site to a decorator. It is what declaration
// glue (such as Class) hands over together with the original callable.
type Decl[T any] struct {
	Name    string
	Kind    Kind
	Static  bool
	Private bool

	// Receiver is what static members are bound to. Instance members ignore it.
	Receiver *T

	// Self identifies the original callable as Scope.Lookup reports it, for
	// glue that keeps originals in its method table. May be nil.
	Self any

	// AddInitializer registers a per-instance hook. Required for instance members.
	AddInitializer func(Initializer[T])
}

func (d *Decl[T]) validate() error {
	if d.Kind != KindMethod {
		return &ConfigError{Name: d.Name, Err: fmt.Errorf("%w, got %s", ErrNotMethod, d.Kind)}
	}
	err := validation.ValidateStruct(d,
		validation.Field(&d.Name, validation.Required, validation.Length(1, 256)),
	)
	if err != nil {
		return &ConfigError{Name: d.Name, Err: err}
	}
	if d.Static {
		return nil
	}
	if d.Private {
		return &ConfigError{Name: d.Name, Err: ErrPrivateInstance}
	}
	if d.AddInitializer == nil {
		return &ConfigError{Name: d.Name, Err: ErrNoInitializer}
	}
	if reflect.TypeFor[T]().Size() == 0 {
		return &ConfigError{Name: d.Name, Err: ErrZeroSize}
	}
	return nil
}

// binding attaches memoisation contexts of one declaration site to receivers:
// a single eagerly created context for static members, one context per
// instance otherwise.
//
// Instance contexts live in a side table keyed by a weak pointer to the
// instance, so the instance itself is never modified. A runtime cleanup drops
// the entry once the instance is collected. Contexts only hold the receiver
// weakly; a result that references its receiver keeps the instance alive.
type binding[T, C any] struct {
	name   string
	static bool
	shared C

	slots *xsync.MapOf[weak.Pointer[T], C]
}

// context resolves the context for recv.
func (b *binding[T, C]) context(recv *T) (C, bool) {
	if b.static {
		return b.shared, true
	}
	if recv == nil {
		var zero C
		return zero, false
	}
	return b.slots.Load(weak.Make(recv))
}

// bind creates the instance context for recv unless one exists already.
func (b *binding[T, C]) bind(recv *T, newCtx func(recv func() *T) C) (created bool) {
	wp := weak.Make(recv)
	_, loaded := b.slots.LoadOrCompute(wp, func() C { return newCtx(wp.Value) })
	if loaded {
		return false
	}
	slots := b.slots
	runtime.AddCleanup(recv, func(key weak.Pointer[T]) { slots.Delete(key) }, wp)
	return true
}

// bound returns the number of live instance contexts.
func (b *binding[T, C]) bound() int {
	if b.static {
		return 1
	}
	return b.slots.Size()
}

// decorate applies the binding policy shared by keyed and argless members:
//   - static: one context bound to decl.Receiver, created now;
//   - private instance: rejected;
//   - instance: an initializer validates overrides and binds each instance.
func decorate[T, C any](decl Decl[T], o *options, newCtx func(recv func() *T) C) (*binding[T, C], error) {
	if err := decl.validate(); err != nil {
		o.logger.Debug("memo: declaration rejected", "name", decl.Name, "error", err)
		return nil, err
	}

	b := &binding[T, C]{name: decl.Name, static: decl.Static}
	if decl.Static {
		recv := decl.Receiver
		b.shared = newCtx(func() *T { return recv })
		o.logger.Debug("memo: static method bound", "name", decl.Name)
		return b, nil
	}

	b.slots = xsync.NewMapOf[weak.Pointer[T], C]()
	decl.AddInitializer(func(recv *T, scope Scope) error {
		if recv == nil {
			return fmt.Errorf("memo: initialising %s: %w", decl.Name, ErrNilReceiver)
		}
		cur, ok := scope.Lookup(decl.Name)
		if !ok || (!sameCallable(cur, decl.Self) && !IsMemoised(cur)) {
			err := &IntegrityError{Class: scope.Class(), Method: decl.Name}
			o.logger.Warn("memo: undecorated override", "class", scope.Class(), "method", decl.Name)
			return err
		}
		if b.bind(recv, newCtx) {
			o.logger.Debug("memo: instance method bound", "class", scope.Class(), "method", decl.Name)
		}
		return nil
	})
	return b, nil
}

// sameCallable compares two method-table entries without panicking on
// incomparable dynamic types.
func sameCallable(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// Decorator turns an original method into its memoised replacement for one
// declaration site.
type Decorator[T, A, V any, K comparable] func(orig Func[T, A, V], decl Decl[T]) (*Method[T, A, V, K], error)

// ArglessDecorator is the Decorator of argument-independent methods.
type ArglessDecorator[T, V any] func(orig func(recv *T) (V, error), decl Decl[T]) (*ArglessMethod[T, V], error)

// Memoise memoises per distinct argument list, keyed by JSON (see JSONKey).
func Memoise[T, A, V any](opts ...Option) Decorator[T, A, V, string] {
	return MemoiseWith[T, A, V](JSON[*T, A], opts...)
}

// MemoiseIdentity memoises using the argument itself as the key.
func MemoiseIdentity[T any, A comparable, V any](opts ...Option) Decorator[T, A, V, A] {
	return MemoiseWith[T, A, V](Identity[*T, A], opts...)
}

// MemoiseWith memoises per key derived by ser. A nil ser selects JSON when K
// is string and is a configuration error otherwise.
func MemoiseWith[T, A, V any, K comparable](ser Serialiser[*T, A, K], opts ...Option) Decorator[T, A, V, K] {
	if ser == nil {
		var def any = Serialiser[*T, A, string](JSON[*T, A])
		ser, _ = def.(Serialiser[*T, A, K])
	}
	return func(orig Func[T, A, V], decl Decl[T]) (*Method[T, A, V, K], error) {
		if orig == nil {
			return nil, &ConfigError{Name: decl.Name, Err: ErrNotMethod}
		}
		if ser == nil {
			return nil, &ConfigError{Name: decl.Name, Err: ErrNoSerialiser}
		}
		o := newOptions(opts)
		if o.name == "" {
			o.name = decl.Name
		}
		b, err := decorate(decl, o, func(recv func() *T) *keyedContext[T, A, V, K] {
			return newKeyedContext(o.name, recv, orig, ser, o)
		})
		if err != nil {
			return nil, err
		}
		return &Method[T, A, V, K]{name: o.name, b: b}, nil
	}
}

// MemoiseAll memoises disregarding arguments: the method runs at most once
// per receiver between clears.
func MemoiseAll[T, V any](opts ...Option) ArglessDecorator[T, V] {
	return func(orig func(*T) (V, error), decl Decl[T]) (*ArglessMethod[T, V], error) {
		if orig == nil {
			return nil, &ConfigError{Name: decl.Name, Err: ErrNotMethod}
		}
		o := newOptions(opts)
		if o.name == "" {
			o.name = decl.Name
		}
		b, err := decorate(decl, o, func(recv func() *T) *arglessContext[T, V] {
			return newArglessContext(o.name, recv, orig, o)
		})
		if err != nil {
			return nil, err
		}
		return &ArglessMethod[T, V]{name: o.name, b: b}, nil
	}
}

// Method is a memoised method keyed by its arguments.
type Method[T, A, V any, K comparable] struct {
	name string
	b    *binding[T, *keyedContext[T, A, V, K]]
}

// Call returns the memoised result for recv and args. Static methods ignore
// recv and use the receiver they were declared with. Calling an instance
// method on an instance that was never initialised returns ErrUnbound.
func (m *Method[T, A, V, K]) Call(recv *T, args A) (V, error) {
	ctx, ok := m.b.context(recv)
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: %s", ErrUnbound, m.name)
	}
	return ctx.autoGet(args)
}

// Cache returns recv's cache, or nil if recv is not bound.
func (m *Method[T, A, V, K]) Cache(recv *T) Cache[K, A] {
	ctx, ok := m.b.context(recv)
	if !ok {
		return nil
	}
	return ctx
}

// Name returns the label used in logs and metrics.
func (m *Method[T, A, V, K]) Name() string { return m.name }

// Static reports whether the method is a class-level member.
func (m *Method[T, A, V, K]) Static() bool { return m.b.static }

func (m *Method[T, A, V, K]) handle() Handle {
	if !m.b.static {
		return nil
	}
	return m.b.shared
}

func (*Method[T, A, V, K]) memoised() {}

// ArglessMethod is a memoised method computed once per receiver.
type ArglessMethod[T, V any] struct {
	name string
	b    *binding[T, *arglessContext[T, V]]
}

// Call returns the memoised value for recv, computing it on first use.
func (m *ArglessMethod[T, V]) Call(recv *T) (V, error) {
	ctx, ok := m.b.context(recv)
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: %s", ErrUnbound, m.name)
	}
	return ctx.autoGet()
}

// Cache returns recv's cache, or nil if recv is not bound.
func (m *ArglessMethod[T, V]) Cache(recv *T) ArglessCache {
	ctx, ok := m.b.context(recv)
	if !ok {
		return nil
	}
	return ctx
}

// Name returns the label used in logs and metrics.
func (m *ArglessMethod[T, V]) Name() string { return m.name }

// Static reports whether the method is a class-level member.
func (m *ArglessMethod[T, V]) Static() bool { return m.b.static }

func (m *ArglessMethod[T, V]) handle() Handle {
	if !m.b.static {
		return nil
	}
	return m.b.shared
}

func (*ArglessMethod[T, V]) memoised() {}
