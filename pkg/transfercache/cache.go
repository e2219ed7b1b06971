package transfercache

import "sync"

// Cache is the lock-based transfer cache for one size class. A single mutex
// scoped to this cache serializes inserts, removes and capacity changes; caches
// of different size classes never contend. Batches are handed out in LIFO order
// so the most recently parked objects stay cache-resident.
type Cache[T any] struct {
	mu        sync.Mutex
	freelist  CentralFreeList[T]
	manager   Manager
	sizeClass int
	batchSize int
	capacity  int
	slots     [][]T // occupied slots only, most recent at the tail
	counters
}

func New[T any](sizeClass int, freelist CentralFreeList[T], manager Manager) *Cache[T] {
	return &Cache[T]{
		freelist:  freelist,
		manager:   manager,
		sizeClass: sizeClass,
		batchSize: manager.NumObjectsToMove(sizeClass),
		capacity:  InitialCapacityInBatches,
		slots:     make([][]T, 0, MaxCapacityInBatches),
	}
}

// Insert parks a full batch in the cache. On a full cache it asks the manager to
// steal one slot of capacity from a sibling; if denied the batch goes straight to
// the central free list, so a batch is never dropped and the cache never grows
// past the global budget. The free list is always called outside the lock.
func (c *Cache[T]) Insert(batch []T) {
	if len(batch) != c.batchSize {
		panic("transfercache: batch length must equal the size class batch size")
	}

	if c.tryInsert(batch) {
		c.insertHits.Add(1)
		return
	}

	// Growth is lazy, attempted only at the moment of overflow. The sibling is
	// shrunk first, so the global budget is conserved; never ask for a slot this
	// cache could not use.
	if c.Capacity() < MaxCapacityInBatches && c.manager.ShrinkCache(c.sizeClass) {
		c.Grow()
		if c.tryInsert(batch) {
			c.insertHits.Add(1)
			return
		}
	}

	c.insertMisses.Add(1)
	c.freelist.InsertRange(batch)
}

func (c *Cache[T]) tryInsert(batch []T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.slots) >= c.capacity {
		return false
	}
	c.slots = append(c.slots, batch)
	return true
}

// Remove pops the most recently inserted batch. An empty cache falls through to
// the central free list and its result (or out-of-memory error) is returned as is.
func (c *Cache[T]) Remove(n int) ([]T, error) {
	if n != c.batchSize {
		panic("transfercache: remove count must equal the size class batch size")
	}

	c.mu.Lock()
	if last := len(c.slots) - 1; last >= 0 {
		batch := c.slots[last]
		c.slots[last] = nil
		c.slots = c.slots[:last]
		c.mu.Unlock()
		c.removeHits.Add(1)
		return batch, nil
	}
	c.mu.Unlock()

	c.removeMisses.Add(1)
	return c.freelist.RemoveRange(n)
}

// Grow adds one slot of capacity, up to the per-cache ceiling. The caller must
// already own the budget for it (a granted ShrinkCache on a sibling).
func (c *Cache[T]) Grow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capacity >= MaxCapacityInBatches {
		return false
	}
	c.capacity++
	c.grows.Add(1)
	return true
}

// Shrink releases one slot of capacity back to the budget. Only an empty slot is
// ever released: a cache is never forced to evict live batches for a sibling.
func (c *Cache[T]) Shrink() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capacity == 0 || len(c.slots) >= c.capacity {
		return false
	}
	c.capacity--
	c.shrinks.Add(1)
	return true
}

// HasSpareCapacity reports whether an insert would currently land in the ring.
func (c *Cache[T]) HasSpareCapacity() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots) < c.capacity
}

func (c *Cache[T]) Length() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

func (c *Cache[T]) Capacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capacity
}

func (c *Cache[T]) SizeClass() int { return c.sizeClass }

func (c *Cache[T]) Stats() Stats {
	c.mu.Lock()
	st := Stats{
		SizeClass: c.sizeClass,
		BatchSize: c.batchSize,
		Capacity:  c.capacity,
		Occupancy: len(c.slots),
	}
	c.mu.Unlock()
	c.snapshot(&st)
	return st
}
