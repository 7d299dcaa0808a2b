package chat

// Ring is a bounded append-only buffer that drops the oldest entry once full.
// It is not safe for concurrent use; owners guard it themselves.
type Ring[T any] struct {
	items []T
	limit int
}

// NewRing creates a ring holding at most limit entries. A non-positive limit
// is treated as one.
func NewRing[T any](limit int) *Ring[T] {
	if limit < 1 {
		limit = 1
	}
	return &Ring[T]{items: make([]T, 0, min(limit, 64)), limit: limit}
}

// Push appends v, evicting the oldest entry when the ring is at capacity.
func (r *Ring[T]) Push(v T) {
	if len(r.items) == r.limit {
		copy(r.items, r.items[1:])
		r.items[len(r.items)-1] = v
		return
	}
	r.items = append(r.items, v)
}

// Len reports the number of stored entries.
func (r *Ring[T]) Len() int {
	return len(r.items)
}

// Items returns a copy of the entries, oldest first.
func (r *Ring[T]) Items() []T {
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// Reset drops every entry.
func (r *Ring[T]) Reset() {
	clear(r.items)
	r.items = r.items[:0]
}
