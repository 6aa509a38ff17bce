package pool

// Resettable is implemented by objects that can be cleared for reuse.
type Resettable interface {
	Reset()
}

// Pool is a bounded free list of reusable objects.
//
// Unlike sync.Pool it never drops idle objects on GC, which keeps expensive
// objects such as gzip compressors warm between requests.
type Pool[T Resettable] struct {
	items chan T
	newFn func() T
}

// New creates a pool holding at most capacity idle objects. newFn builds an
// object when the pool is empty.
func New[T Resettable](capacity int, newFn func() T) *Pool[T] {
	return &Pool[T]{
		items: make(chan T, capacity),
		newFn: newFn,
	}
}

// Get returns an idle object or a new one.
func (p *Pool[T]) Get() T {
	select {
	case item := <-p.items:
		return item
	default:
		return p.newFn()
	}
}

// Put resets item and keeps it if the pool has room.
func (p *Pool[T]) Put(item T) {
	item.Reset()

	select {
	case p.items <- item:
	default:
	}
}

// Idle reports how many objects are waiting for reuse.
func (p *Pool[T]) Idle() int {
	return len(p.items)
}
