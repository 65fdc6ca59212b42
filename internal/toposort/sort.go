package toposort

import "github.com/MyCarrier-DevOps/go-gitgraph/internal/identity"

// Sort returns items ordered so that each item appears after all of its
// transitive dependencies. Items are identified by key, so distinct values
// with equal keys are treated as one item. Dependencies that are not in
// items are still visited and appear in the output.
func Sort[T any, K comparable](items []T, deps func(T) []T, key func(T) K, opts ...Option) ([]T, error) {
	return sortWith(items, plain(deps), identity.ByKey(key), keyLabel(key), opts)
}

// SortByKey is Sort with dependencies named by key. Every dependency key
// must belong to an item in items.
func SortByKey[T any, K comparable](items []T, deps func(T) []K, key func(T) K, opts ...Option) ([]T, error) {
	return sortWith(items, remap(items, deps, key), identity.ByKey(key), keyLabel(key), opts)
}

// SortWith is Sort with a caller-supplied Comparer for item identity.
func SortWith[T any](items []T, deps func(T) []T, cmp identity.Comparer[T], opts ...Option) ([]T, error) {
	return sortWith(items, plain(deps), cmp, nil, opts)
}

func sortWith[T any](items []T, deps depFunc[T], cmp identity.Comparer[T], label func(T) string, opts []Option) ([]T, error) {
	s := &sorter[T]{
		deps:    deps,
		label:   label,
		opts:    buildOptions(opts),
		visited: identity.NewMap[T, bool](cmp),
		sorted:  make([]T, 0, len(items)),
	}
	for _, item := range items {
		if err := s.visit(item); err != nil {
			return nil, err
		}
	}
	return s.sorted, nil
}

type sorter[T any] struct {
	deps  depFunc[T]
	label func(T) string
	opts  options

	// visited maps an item to true while its dependencies are being
	// visited and to false once it has been emitted.
	visited *identity.Map[T, bool]
	sorted  []T
}

func (s *sorter[T]) visit(item T) error {
	if inProcess, seen := s.visited.Get(item); seen {
		if inProcess && !s.opts.ignoreCycles {
			return cycleError(item, s.label)
		}
		return nil
	}

	s.visited.Set(item, true)

	deps, err := s.deps(item)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		if err := s.visit(dep); err != nil {
			return err
		}
	}

	s.visited.Set(item, false)
	s.sorted = append(s.sorted, item)
	return nil
}
