package transfercache

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Mode selects the concurrency discipline of the caches a manager owns.
type Mode string

const (
	Locked   Mode = "locked"
	LockFree Mode = "lockfree"
)

const (
	// targetTransferBytes sizes a batch so one hand-off moves roughly this many
	// bytes regardless of the object size.
	targetTransferBytes = 8192
	minBatchObjects     = 2
	maxBatchObjects     = 32
)

// DefaultSizeClasses is the object size table used when the caller does not
// provide one.
var DefaultSizeClasses = []int{
	8, 16, 32, 48, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384, 512,
}

// CacheManager owns one transfer cache per size class and arbitrates capacity
// between them under a fixed global budget. Rebalancing conserves the budget: a
// cache may only grow after some sibling gave a slot up, and a sibling only ever
// gives up empty slots. Siblings never touch each other's ring directly; every
// capacity move goes through ShrinkCache.
type CacheManager[T any] struct {
	caches     []Cacher[T]
	batchSizes []int
	cursor     atomic.Uint64 // round-robin victim scan start
}

// NewCacheManager builds caches of the requested mode, one per entry of
// sizeClasses (object sizes in bytes), each backed by its own central free list.
func NewCacheManager[T any](mode Mode, sizeClasses []int, freelist func(sizeClass int) CentralFreeList[T]) *CacheManager[T] {
	if len(sizeClasses) == 0 {
		sizeClasses = DefaultSizeClasses
	}

	m := &CacheManager[T]{
		caches:     make([]Cacher[T], len(sizeClasses)),
		batchSizes: make([]int, len(sizeClasses)),
	}
	for sc, bytes := range sizeClasses {
		m.batchSizes[sc] = batchSizeFor(bytes)
	}
	for sc := range sizeClasses {
		switch mode {
		case Locked:
			m.caches[sc] = New[T](sc, freelist(sc), m)
		case LockFree:
			m.caches[sc] = NewLockFree[T](sc, freelist(sc), m)
		default:
			panic("transfer cache mode " + string(mode) + " is not implemented")
		}
	}

	log.Info().Msgf("[transfer-cache] manager started (mode: %s, classes: %d, budget: %d batches)",
		mode, len(sizeClasses), len(sizeClasses)*InitialCapacityInBatches)

	return m
}

func batchSizeFor(objBytes int) int {
	n := targetTransferBytes / objBytes
	if n < minBatchObjects {
		return minBatchObjects
	}
	if n > maxBatchObjects {
		return maxBatchObjects
	}
	return n
}

// NumObjectsToMove returns the fixed batch size for a size class. Queried at
// cache construction, immutable thereafter.
func (m *CacheManager[T]) NumObjectsToMove(sizeClass int) int {
	return m.batchSizes[sizeClass]
}

// ShrinkCache tries to reclaim one empty batch slot from some cache other than
// the caller's. The scan is round-robin so no single sibling is bled dry.
func (m *CacheManager[T]) ShrinkCache(sizeClass int) bool {
	n := len(m.caches)
	if n < 2 {
		return false
	}
	start := int(m.cursor.Add(1))
	for i := 0; i < n; i++ {
		victim := (start + i) % n
		if victim == sizeClass {
			continue
		}
		if m.caches[victim].Shrink() {
			return true
		}
	}
	return false
}

// Cache returns the transfer cache serving a size class.
func (m *CacheManager[T]) Cache(sizeClass int) Cacher[T] {
	return m.caches[sizeClass]
}

func (m *CacheManager[T]) NumSizeClasses() int { return len(m.caches) }

// TotalCapacity reports the summed capacity of all caches in batches. Stays at
// the initial budget no matter how capacity gets shuffled around.
func (m *CacheManager[T]) TotalCapacity() int {
	var total int
	for _, c := range m.caches {
		total += c.Capacity()
	}
	return total
}

// Stats snapshots every cache.
func (m *CacheManager[T]) Stats() []Stats {
	out := make([]Stats, 0, len(m.caches))
	for _, c := range m.caches {
		out = append(out, c.Stats())
	}
	return out
}
