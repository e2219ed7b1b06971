package transfercache

import (
	"runtime"
	"sync/atomic"
)

// Slot life cycle for the lock-free ring. A writer claims an empty slot before
// publishing its batch, a reader claims an occupied slot before draining it, so a
// batch is either fully visible or not inserted at all and no slot is consumed
// twice.
const (
	slotEmpty uint32 = iota
	slotClaimed
	slotOccupied
)

type slot[T any] struct {
	state atomic.Uint32
	_     [60]byte // keep neighbouring slot states off one cache line
	batch []T
}

// LockFreeCache offers the same contract as Cache without blocking
// synchronization: all coordination is CAS/fetch-add retry loops.
//
// Capacity and occupancy live in one packed word (capacity<<32 | occupancy), so
// the occupancy<=capacity invariant holds at every observation point and Shrink
// proves an empty slot exists in the same CAS that releases it. Insert and Remove
// draw monotonically increasing tickets and map them onto a ring of
// MaxCapacityInBatches slots; tickets are 64-bit, so wraparound of the ring is
// correct for arbitrarily many laps. Slot storage is allocated up front at max
// capacity, which is what lets Grow publish a larger capacity with a single store.
type LockFreeCache[T any] struct {
	freelist  CentralFreeList[T]
	manager   Manager
	sizeClass int
	batchSize int
	mask      uint64

	capSize atomic.Uint64 // capacity<<32 | occupancy
	_       [56]byte
	head    atomic.Uint64 // next insert ticket
	_       [56]byte
	tail    atomic.Uint64 // next remove ticket

	slots []slot[T]
	counters
}

func NewLockFree[T any](sizeClass int, freelist CentralFreeList[T], manager Manager) *LockFreeCache[T] {
	c := &LockFreeCache[T]{
		freelist:  freelist,
		manager:   manager,
		sizeClass: sizeClass,
		batchSize: manager.NumObjectsToMove(sizeClass),
		mask:      MaxCapacityInBatches - 1,
		slots:     make([]slot[T], MaxCapacityInBatches),
	}
	c.capSize.Store(pack(InitialCapacityInBatches, 0))
	return c
}

func pack(capacity, occupancy uint64) uint64 { return capacity<<32 | occupancy }

func unpack(cs uint64) (capacity, occupancy uint64) { return cs >> 32, cs & 0xffffffff }

// Insert parks a batch without blocking. Overflow handling matches the locked
// variant: ask the manager for one slot of a sibling's capacity, otherwise push
// the batch to the central free list.
func (c *LockFreeCache[T]) Insert(batch []T) {
	if len(batch) != c.batchSize {
		panic("transfercache: batch length must equal the size class batch size")
	}

	if c.tryInsert(batch) {
		c.insertHits.Add(1)
		return
	}

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

func (c *LockFreeCache[T]) tryInsert(batch []T) bool {
	// Reserve one unit of occupancy, or bail if the cache is full.
	for {
		cs := c.capSize.Load()
		capacity, occupancy := unpack(cs)
		if occupancy >= capacity {
			return false
		}
		if c.capSize.CompareAndSwap(cs, pack(capacity, occupancy+1)) {
			break
		}
	}

	// The reservation guarantees a slot turn; the ticket says which one.
	ticket := c.head.Add(1) - 1
	s := &c.slots[ticket&c.mask]
	for !s.state.CompareAndSwap(slotEmpty, slotClaimed) {
		// A reader from the previous lap is still draining this slot.
		runtime.Gosched()
	}
	s.batch = batch
	s.state.Store(slotOccupied)
	return true
}

func (c *LockFreeCache[T]) Remove(n int) ([]T, error) {
	if n != c.batchSize {
		panic("transfercache: remove count must equal the size class batch size")
	}
	if batch, ok := c.tryRemove(); ok {
		c.removeHits.Add(1)
		return batch, nil
	}
	c.removeMisses.Add(1)
	return c.freelist.RemoveRange(n)
}

func (c *LockFreeCache[T]) tryRemove() ([]T, bool) {
	for {
		cs := c.capSize.Load()
		capacity, occupancy := unpack(cs)
		if occupancy == 0 {
			return nil, false
		}
		if c.capSize.CompareAndSwap(cs, pack(capacity, occupancy-1)) {
			break
		}
	}

	ticket := c.tail.Add(1) - 1
	s := &c.slots[ticket&c.mask]
	for !s.state.CompareAndSwap(slotOccupied, slotClaimed) {
		// The writer holding this turn has reserved but not yet published.
		runtime.Gosched()
	}
	batch := s.batch
	s.batch = nil
	s.state.Store(slotEmpty)
	return batch, true
}

// Grow publishes one more slot of capacity. Safe concurrently with in-flight
// inserts and removes: storage is already initialized, the CAS only raises the
// admission bound.
func (c *LockFreeCache[T]) Grow() bool {
	for {
		cs := c.capSize.Load()
		capacity, occupancy := unpack(cs)
		if capacity >= MaxCapacityInBatches {
			return false
		}
		if c.capSize.CompareAndSwap(cs, pack(capacity+1, occupancy)) {
			c.grows.Add(1)
			return true
		}
	}
}

// Shrink releases one slot of capacity. The occupancy<capacity check and the
// capacity decrement happen in one CAS, so only a provably empty slot is ever
// returned to the budget and the invariant never breaks, even transiently.
func (c *LockFreeCache[T]) Shrink() bool {
	for {
		cs := c.capSize.Load()
		capacity, occupancy := unpack(cs)
		if capacity == 0 || occupancy >= capacity {
			return false
		}
		if c.capSize.CompareAndSwap(cs, pack(capacity-1, occupancy)) {
			c.shrinks.Add(1)
			return true
		}
	}
}

// HasSpareCapacity is a point-in-time, racy observation: a heuristic for callers
// deciding whether to attempt an optimistic insert, not a transactional check.
func (c *LockFreeCache[T]) HasSpareCapacity() bool {
	capacity, occupancy := unpack(c.capSize.Load())
	return occupancy < capacity
}

func (c *LockFreeCache[T]) Length() int {
	_, occupancy := unpack(c.capSize.Load())
	return int(occupancy)
}

func (c *LockFreeCache[T]) Capacity() int {
	capacity, _ := unpack(c.capSize.Load())
	return int(capacity)
}

func (c *LockFreeCache[T]) SizeClass() int { return c.sizeClass }

func (c *LockFreeCache[T]) Stats() Stats {
	capacity, occupancy := unpack(c.capSize.Load())
	st := Stats{
		SizeClass: c.sizeClass,
		BatchSize: c.batchSize,
		Capacity:  int(capacity),
		Occupancy: int(occupancy),
	}
	c.snapshot(&st)
	return st
}
