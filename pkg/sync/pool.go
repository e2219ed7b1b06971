// Package synced provides a typed free pool used to recycle batch slices on the
// stress hot path instead of allocating one per operation.
package synced

import (
	"sync"
	"sync/atomic"
)

type BatchPool[T any] struct {
	pooled    atomic.Int64
	pool      sync.Pool
	allocFunc func() T
}

// NewBatchPool builds a pool seeded with preallocate items produced by allocFunc.
func NewBatchPool[T any](preallocate int, allocFunc func() T) *BatchPool[T] {
	bp := &BatchPool[T]{allocFunc: allocFunc}
	bp.pool.New = func() any { return allocFunc() }
	for i := 0; i < preallocate; i++ {
		bp.Put(allocFunc())
	}
	return bp
}

// Len approximates how many items currently sit in the pool. The runtime may
// drop pooled items under memory pressure, so this only ever overcounts.
func (bp *BatchPool[T]) Len() int {
	return int(bp.pooled.Load())
}

func (bp *BatchPool[T]) Get() T {
	if bp.pooled.Load() > 0 {
		bp.pooled.Add(-1)
	}
	return bp.pool.Get().(T)
}

func (bp *BatchPool[T]) Put(x T) {
	bp.pool.Put(x)
	bp.pooled.Add(1)
}
