package memo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/cespare/xxhash/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vmihailenco/msgpack/v5"
)

// Serialiser derives a cache key from a call's receiver and arguments.
// It must be a pure function of its inputs: a non-deterministic serialiser
// breaks the at-most-once computation guarantee. The receiver is available so
// that keys can incorporate instance state.
type Serialiser[R, A any, K comparable] func(recv R, args A) (K, error)

// KeyFunc derives a cache key from arguments alone.
type KeyFunc[A any, K comparable] func(args A) (K, error)

// ArgsOnly lifts a KeyFunc into a Serialiser that ignores the receiver.
//
//	memo.MemoiseWith[Repo, string, User](memo.ArgsOnly[*Repo](memo.MsgpackKey[string]))
func ArgsOnly[R, A any, K comparable](kf KeyFunc[A, K]) Serialiser[R, A, K] {
	return func(_ R, args A) (K, error) { return kf(args) }
}

// ArgList is implemented by argument tuples. Serialisers encode the returned
// values as a positional list.
type ArgList interface {
	Args() []any
}

// NoArgs is the argument type of callables that take no arguments but are
// still memoised per key. It encodes as an empty list.
type NoArgs struct{}

func (NoArgs) Args() []any { return []any{} }

// Pair carries two positional arguments.
type Pair[A, B any] struct {
	First  A
	Second B
}

func (p Pair[A, B]) Args() []any { return []any{p.First, p.Second} }

// Args2 builds a Pair.
func Args2[A, B any](a A, b B) Pair[A, B] { return Pair[A, B]{First: a, Second: b} }

// Triple carries three positional arguments.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

func (t Triple[A, B, C]) Args() []any { return []any{t.First, t.Second, t.Third} }

// Args3 builds a Triple.
func Args3[A, B, C any](a A, b B, c C) Triple[A, B, C] {
	return Triple[A, B, C]{First: a, Second: b, Third: c}
}

// argList returns the positional argument list of args.
func argList(args any) []any {
	if l, ok := args.(ArgList); ok {
		return l.Args()
	}
	return []any{args}
}

// JSONKey is the default key function: the JSON encoding of the positional
// argument list, e.g. `[1,1]` for Args2(1, 1) and `["a"]` for "a".
// encoding/json sorts map keys, so structurally equal arguments yield equal keys.
//
// Strings must be valid UTF-8: encoding/json replaces invalid bytes with
// U+FFFD, which would give distinct arguments one key, so such arguments fail
// with ErrInvalidUTF8. Use MsgpackKey for arbitrary bytes.
func JSONKey[A any](args A) (string, error) {
	b, err := json.Marshal(argList(args))
	if err != nil {
		return "", err
	}
	if replacedInvalidUTF8(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}

// replacedInvalidUTF8 reports whether enc holds an unescaped `\ufffd`
// sequence. encoding/json emits it only in place of invalid UTF-8 bytes;
// a valid U+FFFD rune is written raw and a literal backslash is doubled.
func replacedInvalidUTF8(enc []byte) bool {
	esc := []byte(`\ufffd`)
	for i := 0; ; {
		j := bytes.Index(enc[i:], esc)
		if j < 0 {
			return false
		}
		j += i
		slashes := 0
		for k := j - 1; k >= 0 && enc[k] == '\\'; k-- {
			slashes++
		}
		if slashes%2 == 0 {
			return true
		}
		i = j + len(esc)
	}
}

// JSON is JSONKey as a Serialiser.
func JSON[R, A any](_ R, args A) (string, error) { return JSONKey(args) }

// IdentityKey uses the argument itself as the key. It allows keys that do not
// encode, such as pointers, relying on Go's native equality. Interface values
// holding unhashable types, such as a []int in an any, fail with ErrUnhashable.
func IdentityKey[A comparable](args A) (A, error) {
	if err := checkHashable(args); err != nil {
		var zero A
		return zero, err
	}
	return args, nil
}

// Identity is IdentityKey as a Serialiser.
func Identity[R any, A comparable](_ R, args A) (A, error) { return IdentityKey(args) }

// interfaceKeyTypes caches holdsInterface per key type.
var interfaceKeyTypes = xsync.NewMapOf[reflect.Type, bool]()

// checkHashable returns ErrUnhashable if k cannot be used as a map key.
// Only types that embed interfaces can fail; others are checked at compile time.
func checkHashable[K comparable](k K) error {
	t := reflect.TypeFor[K]()
	dynamic, ok := interfaceKeyTypes.Load(t)
	if !ok {
		dynamic = holdsInterface(t)
		interfaceKeyTypes.Store(t, dynamic)
	}
	if !dynamic || reflect.ValueOf(&k).Elem().Comparable() {
		return nil
	}
	return fmt.Errorf("%w: %T", ErrUnhashable, k)
}

func holdsInterface(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Array:
		return holdsInterface(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if holdsInterface(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}

// MsgpackKey encodes the positional argument list with msgpack. The key is
// the raw encoding. Keys of map[string]any, map[string]string and
// map[string]bool arguments are sorted; other map types encode in iteration
// order and are not suitable arguments.
func MsgpackKey[A any](args A) (string, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(argList(args)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Msgpack is MsgpackKey as a Serialiser.
func Msgpack[R, A any](_ R, args A) (string, error) { return MsgpackKey(args) }

// HashedKey reduces the keys produced by inner to their 64-bit xxhash.
// Distinct keys may collide; use it only where that risk is acceptable.
func HashedKey[A any](inner KeyFunc[A, string]) KeyFunc[A, uint64] {
	return func(args A) (uint64, error) {
		k, err := inner(args)
		if err != nil {
			return 0, err
		}
		return xxhash.Sum64String(k), nil
	}
}

// Hashed is HashedKey for receiver-aware serialisers.
func Hashed[R, A any](inner Serialiser[R, A, string]) Serialiser[R, A, uint64] {
	return func(recv R, args A) (uint64, error) {
		k, err := inner(recv, args)
		if err != nil {
			return 0, err
		}
		return xxhash.Sum64String(k), nil
	}
}
