package toposort

import "github.com/MyCarrier-DevOps/go-gitgraph/internal/identity"

const inProcess = -1

// Group partitions items into dependency levels. Level 0 holds items with
// no dependencies; an item's level is one more than the highest level of
// its direct dependencies. Within a level, items keep the order in which
// they were resolved.
//
// With IgnoreCycles, a dependency that is still being resolved contributes
// nothing to the level of the item that reached it.
func Group[T any, K comparable](items []T, deps func(T) []T, key func(T) K, opts ...Option) ([][]T, error) {
	return groupWith(items, plain(deps), identity.ByKey(key), keyLabel(key), opts)
}

// GroupByKey is Group with dependencies named by key.
func GroupByKey[T any, K comparable](items []T, deps func(T) []K, key func(T) K, opts ...Option) ([][]T, error) {
	return groupWith(items, remap(items, deps, key), identity.ByKey(key), keyLabel(key), opts)
}

// GroupWith is Group with a caller-supplied Comparer for item identity.
func GroupWith[T any](items []T, deps func(T) []T, cmp identity.Comparer[T], opts ...Option) ([][]T, error) {
	return groupWith(items, plain(deps), cmp, nil, opts)
}

func groupWith[T any](items []T, deps depFunc[T], cmp identity.Comparer[T], label func(T) string, opts []Option) ([][]T, error) {
	g := &grouper[T]{
		deps:    deps,
		label:   label,
		opts:    buildOptions(opts),
		visited: identity.NewMap[T, int](cmp),
	}
	for _, item := range items {
		if _, err := g.visit(item); err != nil {
			return nil, err
		}
	}
	return g.levels, nil
}

type grouper[T any] struct {
	deps  depFunc[T]
	label func(T) string
	opts  options

	visited *identity.Map[T, int]
	levels  [][]T
}

func (g *grouper[T]) visit(item T) (int, error) {
	if level, seen := g.visited.Get(item); seen {
		if level == inProcess && !g.opts.ignoreCycles {
			return 0, cycleError(item, g.label)
		}
		return level, nil
	}

	g.visited.Set(item, inProcess)

	deps, err := g.deps(item)
	if err != nil {
		return 0, err
	}

	level := inProcess
	for _, dep := range deps {
		depLevel, err := g.visit(dep)
		if err != nil {
			return 0, err
		}
		level = max(level, depLevel)
	}
	level++

	g.visited.Set(item, level)
	for len(g.levels) <= level {
		g.levels = append(g.levels, nil)
	}
	g.levels[level] = append(g.levels[level], item)
	return level, nil
}
