package memo

import "fmt"

// Class is a minimal declaration table for a receiver type T. Go has no
// decorators, so Class plays their part: it collects declarations, hands them
// to the decorators and runs the per-instance initializers they register.
//
// Inheritance is modelled with struct embedding and Extend. A Class is meant
// to be populated during package initialisation and is not safe for
// concurrent declaration.
type Class[T any] struct {
	name    string
	methods map[string]any
	statics map[string]any
	inits   []Initializer[T]

	parentLookup func(name string) (any, bool)
	parentInit   func(inst *T, scope Scope) error
}

// NewClass creates an empty class named name.
func NewClass[T any](name string) *Class[T] {
	return &Class[T]{
		name:    name,
		methods: make(map[string]any),
		statics: make(map[string]any),
	}
}

// Extend creates a class deriving from parent. embedded returns the parent
// part of an instance, typically the address of an embedded struct field.
//
//	type Base struct{ ... }
//	type Derived struct{ Base; ... }
//	derived := memo.Extend(base, "Derived", func(d *Derived) *Base { return &d.Base })
func Extend[T, P any](parent *Class[P], name string, embedded func(*T) *P) *Class[T] {
	c := NewClass[T](name)
	c.parentLookup = parent.lookup
	c.parentInit = func(inst *T, scope Scope) error {
		return parent.initWith(embedded(inst), scope)
	}
	return c
}

// Name returns the class name.
func (c *Class[T]) Name() string { return c.name }

// Define declares a plain, non-memoised instance method. Declaring a method
// under the name of a memoised ancestor method makes Init fail.
func (c *Class[T]) Define(name string) error {
	if _, dup := c.methods[name]; dup {
		return &ConfigError{Name: name, Err: ErrDuplicate}
	}
	c.methods[name] = plainMethod{class: c.name, name: name}
	return nil
}

// Init runs the initializers of every ancestor, then those of c, in
// declaration order. It must be called once for every new instance before
// any of its memoised methods is used. Re-running it is harmless.
func (c *Class[T]) Init(inst *T) error {
	if inst == nil {
		return fmt.Errorf("memo: %s.Init: %w", c.name, ErrNilReceiver)
	}
	return c.initWith(inst, classScope{class: c.name, lookup: c.lookup})
}

// MustInit is like Init but panics on error.
func (c *Class[T]) MustInit(inst *T) {
	if err := c.Init(inst); err != nil {
		panic(err)
	}
}

func (c *Class[T]) initWith(inst *T, scope Scope) error {
	if c.parentInit != nil {
		if err := c.parentInit(inst, scope); err != nil {
			return err
		}
	}
	for _, init := range c.inits {
		if err := init(inst, scope); err != nil {
			return err
		}
	}
	return nil
}

// lookup resolves an instance member, walking up the ancestor chain.
func (c *Class[T]) lookup(name string) (any, bool) {
	if m, ok := c.methods[name]; ok {
		return m, true
	}
	if c.parentLookup != nil {
		return c.parentLookup(name)
	}
	return nil, false
}

// declare checks name against the right table and builds the declaration.
func (c *Class[T]) declare(name string, o *options) (Decl[T], error) {
	table := c.methods
	if o.static {
		table = c.statics
	}
	if _, dup := table[name]; dup {
		return Decl[T]{}, &ConfigError{Name: name, Err: ErrDuplicate}
	}
	return Decl[T]{
		Name:    name,
		Kind:    KindMethod,
		Static:  o.static,
		Private: o.private,
		AddInitializer: func(init Initializer[T]) {
			c.inits = append(c.inits, init)
		},
	}, nil
}

func (c *Class[T]) register(name string, static bool, m any) {
	if static {
		c.statics[name] = m
		return
	}
	c.methods[name] = m
}

// DefineMethod declares a memoised method keyed by the JSON encoding of its
// arguments.
func DefineMethod[T, A, V any](c *Class[T], name string, fn Func[T, A, V], opts ...Option) (*Method[T, A, V, string], error) {
	return DefineMethodWith(c, name, fn, JSON[*T, A], opts...)
}

// DefineIdentity declares a memoised method keyed by its argument.
func DefineIdentity[T any, A comparable, V any](c *Class[T], name string, fn Func[T, A, V], opts ...Option) (*Method[T, A, V, A], error) {
	return DefineMethodWith(c, name, fn, Identity[*T, A], opts...)
}

// DefineMethodWith declares a memoised method keyed by ser.
func DefineMethodWith[T, A, V any, K comparable](
	c *Class[T], name string, fn Func[T, A, V], ser Serialiser[*T, A, K], opts ...Option,
) (*Method[T, A, V, K], error) {
	o := newOptions(opts)
	decl, err := c.declare(name, o)
	if err != nil {
		return nil, err
	}
	m, err := MemoiseWith[T, A, V](ser, opts...)(fn, decl)
	if err != nil {
		return nil, err
	}
	c.register(name, o.static, m)
	return m, nil
}

// DefineArgless declares a method memoised disregarding arguments.
func DefineArgless[T, V any](c *Class[T], name string, fn func(*T) (V, error), opts ...Option) (*ArglessMethod[T, V], error) {
	o := newOptions(opts)
	decl, err := c.declare(name, o)
	if err != nil {
		return nil, err
	}
	m, err := MemoiseAll[T, V](opts...)(fn, decl)
	if err != nil {
		return nil, err
	}
	c.register(name, o.static, m)
	return m, nil
}

// Must panics if err is non-nil and returns m otherwise. It suits package-level
// declarations:
//
//	var area = memo.Must(memo.DefineMethod(shapes, "Area", (*Shape).area))
func Must[M any](m M, err error) M {
	if err != nil {
		panic(err)
	}
	return m
}

// plainMethod is the method-table entry of an undecorated method.
type plainMethod struct {
	class string
	name  string
}

// classScope resolves names from the most-derived class of an instance.
type classScope struct {
	class  string
	lookup func(name string) (any, bool)
}

func (s classScope) Class() string { return s.class }

func (s classScope) Lookup(name string) (any, bool) { return s.lookup(name) }
