package framecache

// Ring is a fixed-capacity double-ended queue backed by a circular array.
// Pushing onto a full ring evicts the element at the opposite end.
type Ring[T any] struct {
	buf  []T
	head int
	n    int
}

// NewRing returns an empty ring holding at most capacity elements.
// A capacity below zero is treated as zero.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

func (r *Ring[T]) Len() int   { return r.n }
func (r *Ring[T]) Cap() int   { return len(r.buf) }
func (r *Ring[T]) Full() bool { return r.n == len(r.buf) }

// At returns the i-th element from the front. It panics if i is out of range.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.n {
		panic("framecache: ring index out of range")
	}
	return r.buf[r.slot(i)]
}

// PushBack appends v. If the ring was full the front element is evicted and
// returned with true. On a zero-capacity ring v itself is returned.
func (r *Ring[T]) PushBack(v T) (evicted T, ok bool) {
	if len(r.buf) == 0 {
		return v, true
	}
	if r.Full() {
		evicted, ok = r.PopFront()
	}
	r.buf[r.slot(r.n)] = v
	r.n++
	return evicted, ok
}

// PushFront prepends v. If the ring was full the back element is evicted and
// returned with true. On a zero-capacity ring v itself is returned.
func (r *Ring[T]) PushFront(v T) (evicted T, ok bool) {
	if len(r.buf) == 0 {
		return v, true
	}
	if r.Full() {
		evicted, ok = r.PopBack()
	}
	r.head = (r.head - 1 + len(r.buf)) % len(r.buf)
	r.buf[r.head] = v
	r.n++
	return evicted, ok
}

// PopFront removes and returns the front element.
func (r *Ring[T]) PopFront() (T, bool) {
	var zero T
	if r.n == 0 {
		return zero, false
	}
	v := r.buf[r.head]
	r.buf[r.head] = zero
	r.head = (r.head + 1) % len(r.buf)
	r.n--
	return v, true
}

// PopBack removes and returns the back element.
func (r *Ring[T]) PopBack() (T, bool) {
	var zero T
	if r.n == 0 {
		return zero, false
	}
	i := r.slot(r.n - 1)
	v := r.buf[i]
	r.buf[i] = zero
	r.n--
	return v, true
}

// Clear drops every element so the backing array no longer references them.
func (r *Ring[T]) Clear() {
	clear(r.buf)
	r.head = 0
	r.n = 0
}

func (r *Ring[T]) slot(i int) int {
	return (r.head + i) % len(r.buf)
}
