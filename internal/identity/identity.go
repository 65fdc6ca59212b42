// Package identity compares and hashes values by a derived key rather than
// by the value itself. It lets generic algorithms track visited items when
// the item type does not define equality, or defines the wrong one.
package identity

import (
	"hash/maphash"
	"reflect"

	"github.com/cespare/xxhash/v2"
)

// Comparer decides equality between two values and produces a hash code
// consistent with that equality: Equal(x, y) implies Hash(x) == Hash(y).
type Comparer[T any] interface {
	Equal(x, y T) bool
	Hash(x T) uint64
}

// Compile-time check that KeyComparer implements Comparer.
var _ Comparer[*int] = KeyComparer[*int, int]{}

// KeyComparer compares items by the key returned from its key function.
//
// Absent items (nil pointers, interfaces, maps, slices, funcs and channels)
// are never passed to the key function. Two absent items are equal to each
// other and unequal to any present item.
type KeyComparer[T any, K comparable] struct {
	key func(T) K
}

// ByKey returns a Comparer that derives identity from key.
func ByKey[T any, K comparable](key func(T) K) KeyComparer[T, K] {
	return KeyComparer[T, K]{key: key}
}

// Key returns the derived key of x. The second result is false when x is absent.
func (c KeyComparer[T, K]) Key(x T) (K, bool) {
	if IsAbsent(x) {
		var zero K
		return zero, false
	}
	return c.key(x), true
}

// Equal reports whether x and y have equal derived keys.
func (c KeyComparer[T, K]) Equal(x, y T) bool {
	xAbsent, yAbsent := IsAbsent(x), IsAbsent(y)
	if xAbsent && yAbsent {
		return true
	}
	if xAbsent || yAbsent {
		return false
	}
	return c.key(x) == c.key(y)
}

// Hash returns the hash code of x's derived key. Absent items hash to 0.
func (c KeyComparer[T, K]) Hash(x T) uint64 {
	if IsAbsent(x) {
		return 0
	}
	return HashKey(c.key(x))
}

var seed = maphash.MakeSeed()

// HashKey hashes a comparable key. Strings are hashed with xxhash; other keys
// are hashed the way a Go map hashes them, so keys equal under == (0 and -0,
// interfaces holding equal values) share a hash code. Hash codes of
// non-string keys are stable within a process only.
func HashKey[K comparable](k K) uint64 {
	if v, ok := any(k).(string); ok {
		return xxhash.Sum64String(v)
	}
	return maphash.Comparable(seed, k)
}

// IsAbsent reports whether x is a nil value of a nillable kind, or a nil interface.
func IsAbsent[T any](x T) bool {
	v := reflect.ValueOf(any(x))
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
