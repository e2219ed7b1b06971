// Package freelist provides the authoritative, lock-guarded object pool backing
// one size class. It is the slow path behind the transfer cache: unbounded in
// practice, growing by allocating fresh spans of objects on demand.
package freelist

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

// ErrExhausted reports a genuine out-of-memory condition: the span allocator
// could not produce more objects. The transfer cache never masks it.
var ErrExhausted = errors.New("freelist: object allocation exhausted")

// Allocator produces one fresh object for the free list's size class.
type Allocator[T any] func() (T, error)

// Central is a mutex-guarded FIFO of objects for a single size class.
type Central[T any] struct {
	mu        sync.Mutex
	objects   *queue.Queue
	alloc     Allocator[T]
	spanSize  int // objects allocated per refill
	inserts   atomic.Uint64
	removes   atomic.Uint64
	spans     atomic.Uint64
	allocated atomic.Uint64
}

// NewCentral builds a free list refilled spanSize objects at a time through
// alloc. A nil alloc makes an empty list terminal: RemoveRange beyond the pooled
// objects reports ErrExhausted.
func NewCentral[T any](spanSize int, alloc Allocator[T]) *Central[T] {
	if spanSize <= 0 {
		spanSize = 1
	}
	return &Central[T]{
		objects:  queue.New(),
		alloc:    alloc,
		spanSize: spanSize,
	}
}

// InsertRange accepts ownership of a full batch.
func (c *Central[T]) InsertRange(batch []T) {
	c.mu.Lock()
	for _, obj := range batch {
		c.objects.Add(obj)
	}
	c.mu.Unlock()
	c.inserts.Add(1)
}

// RemoveRange hands out exactly n objects, allocating a new span when the pool
// runs dry. An allocation failure propagates unchanged.
func (c *Central[T]) RemoveRange(n int) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.objects.Length() < n {
		if err := c.allocSpanLocked(n); err != nil {
			return nil, err
		}
	}

	batch := make([]T, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, c.objects.Remove().(T))
	}
	c.removes.Add(1)
	return batch, nil
}

func (c *Central[T]) allocSpanLocked(batchSize int) error {
	if c.alloc == nil {
		return ErrExhausted
	}
	for i := 0; i < c.spanSize*batchSize; i++ {
		obj, err := c.alloc()
		if err != nil {
			return errors.Join(ErrExhausted, err)
		}
		c.objects.Add(obj)
		c.allocated.Add(1)
	}
	c.spans.Add(1)
	return nil
}

// Length reports the number of pooled objects.
func (c *Central[T]) Length() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objects.Length()
}

func (c *Central[T]) Inserts() uint64   { return c.inserts.Load() }
func (c *Central[T]) Removes() uint64   { return c.removes.Load() }
func (c *Central[T]) Spans() uint64     { return c.spans.Load() }
func (c *Central[T]) Allocated() uint64 { return c.allocated.Load() }
