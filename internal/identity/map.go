package identity

// Map is a hash map keyed by items under a Comparer. Items whose Comparer
// reports them equal share one entry.
type Map[T any, V any] struct {
	cmp     Comparer[T]
	buckets map[uint64][]entry[T, V]
	n       int
}

type entry[T any, V any] struct {
	key T
	val V
}

// NewMap creates an empty Map using cmp for equality and hashing.
func NewMap[T any, V any](cmp Comparer[T]) *Map[T, V] {
	return &Map[T, V]{
		cmp:     cmp,
		buckets: make(map[uint64][]entry[T, V]),
	}
}

// Get returns the value stored for an item equal to k.
func (m *Map[T, V]) Get(k T) (V, bool) {
	for _, e := range m.buckets[m.cmp.Hash(k)] {
		if m.cmp.Equal(e.key, k) {
			return e.val, true
		}
	}
	var zero V
	return zero, false
}

// Set stores v for k, replacing the value of any equal item already present.
// The originally stored item is kept as the entry's key.
func (m *Map[T, V]) Set(k T, v V) {
	h := m.cmp.Hash(k)
	bucket := m.buckets[h]
	for i := range bucket {
		if m.cmp.Equal(bucket[i].key, k) {
			bucket[i].val = v
			return
		}
	}
	m.buckets[h] = append(bucket, entry[T, V]{key: k, val: v})
	m.n++
}

// Has reports whether an item equal to k is present.
func (m *Map[T, V]) Has(k T) bool {
	_, ok := m.Get(k)
	return ok
}

// Len returns the number of distinct entries.
func (m *Map[T, V]) Len() int {
	return m.n
}
