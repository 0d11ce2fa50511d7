package memo

import (
	"errors"
	"fmt"
)

// Configuration errors are reported at declaration time and wrap one of these.
var (
	// ErrNotMethod is returned when something other than a method is decorated.
	ErrNotMethod = errors.New("memo: can only decorate methods")
	// ErrPrivateInstance is returned when a private instance method is decorated.
	ErrPrivateInstance = errors.New("memo: can't memoise private instance methods")
	// ErrDuplicate is returned when a class declares the same method name twice.
	ErrDuplicate = errors.New("memo: method already declared")
	// ErrZeroSize is returned for receiver types whose instances share one address.
	ErrZeroSize = errors.New("memo: zero-size receiver types have no instance identity")
	// ErrNoInitializer is returned when an instance declaration has no initializer hook.
	ErrNoInitializer = errors.New("memo: instance declarations need an initializer hook")
	// ErrNoSerialiser is returned when no serialiser is given and JSON cannot produce the key type.
	ErrNoSerialiser = errors.New("memo: no serialiser for this key type")
)

// Key derivation errors, wrapped in *KeyError by memoised callables.
var (
	// ErrInvalidUTF8 is returned by JSONKey for strings that are not valid UTF-8.
	ErrInvalidUTF8 = errors.New("memo: JSON keys need valid UTF-8 strings")
	// ErrUnhashable is returned for keys whose dynamic type cannot be a map key.
	ErrUnhashable = errors.New("memo: key is not hashable")
)

var (
	// ErrOverride is wrapped by IntegrityError.
	ErrOverride = errors.New("memo: memoised method overridden without memoisation")
	// ErrUnbound is returned when an instance method is called on an instance
	// whose class initializers never ran.
	ErrUnbound = errors.New("memo: instance not initialised")
	// ErrNilReceiver is returned when a nil instance is initialised.
	ErrNilReceiver = errors.New("memo: nil receiver")
)

// ConfigError reports an invalid declaration. It is raised eagerly, before any
// instance exists, and is not retryable.
type ConfigError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("memo: invalid declaration %q: %v", e.Name, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IntegrityError is returned by instance initialisation when a memoised
// method is shadowed by a derived class without being memoised there too.
type IntegrityError struct {
	Class  string
	Method string
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("memo: the %q method is memoised in a base class of %q; "+
		"derived classes cannot override it unless the override is memoised as well", e.Method, e.Class)
}

func (e *IntegrityError) Unwrap() error { return ErrOverride }

// KeyError wraps a serialiser failure. The original callable is not invoked
// when its key cannot be derived.
type KeyError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *KeyError) Error() string {
	return fmt.Sprintf("memo: cannot derive cache key for %s: %v", e.Name, e.Err)
}

func (e *KeyError) Unwrap() error { return e.Err }
