// Package toposort orders items so that every item comes after its
// dependencies. Sort produces one flat order; Group produces dependency
// levels. Both are deterministic for a given input order and dependency
// function, and know nothing about the items they order.
package toposort

import (
	"errors"
	"fmt"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/identity"
)

var (
	// ErrCyclicDependency is returned when an item depends on itself,
	// directly or transitively, and cycles are not tolerated.
	ErrCyclicDependency = errors.New("cyclic dependency found")

	// ErrUnknownDependency is returned by the key-based variants when a
	// dependency key matches no item in the input.
	ErrUnknownDependency = errors.New("unknown dependency")
)

// Option configures a Sort or Group call.
type Option func(*options)

type options struct {
	ignoreCycles bool
}

// IgnoreCycles makes a re-encountered in-process item a no-op instead of an
// error. The result is a best-effort order for the cyclic subset.
func IgnoreCycles() Option {
	return func(o *options) { o.ignoreCycles = true }
}

// WithIgnoreCycles is IgnoreCycles driven by a flag.
func WithIgnoreCycles(ignore bool) Option {
	return func(o *options) { o.ignoreCycles = ignore }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// depFunc is the internal dependency function; errors come from key remapping.
type depFunc[T any] func(T) ([]T, error)

func plain[T any](deps func(T) []T) depFunc[T] {
	return func(item T) ([]T, error) {
		if deps == nil {
			return nil, nil
		}
		return deps(item), nil
	}
}

// remap turns key-based dependencies into item dependencies through an index
// of items by key. The first item wins when keys repeat.
func remap[T any, K comparable](items []T, deps func(T) []K, key func(T) K) depFunc[T] {
	index := make(map[K]T, len(items))
	for _, item := range items {
		k := key(item)
		if _, ok := index[k]; !ok {
			index[k] = item
		}
	}
	return func(item T) ([]T, error) {
		keys := deps(item)
		if keys == nil {
			return nil, nil
		}
		out := make([]T, 0, len(keys))
		for _, k := range keys {
			dep, ok := index[k]
			if !ok {
				return nil, fmt.Errorf("%w: %v required by %v", ErrUnknownDependency, k, key(item))
			}
			out = append(out, dep)
		}
		return out, nil
	}
}

// cycleError annotates ErrCyclicDependency with the item that closed the cycle.
func cycleError[T any](item T, label func(T) string) error {
	if label == nil {
		return ErrCyclicDependency
	}
	return fmt.Errorf("%w at %s", ErrCyclicDependency, label(item))
}

func keyLabel[T any, K comparable](key func(T) K) func(T) string {
	return func(item T) string {
		if identity.IsAbsent(item) {
			return "<nil>"
		}
		return fmt.Sprint(key(item))
	}
}
