// Package transfercache implements the layer between per-thread fast-path caches
// and the central free list of a size-classed allocator. Objects move between the
// layers in fixed-size batches; the cache holds up to capacity batches and its
// capacity is elastic, rebalanced across sibling size classes by the manager.
package transfercache

const (
	// InitialCapacityInBatches is the capacity every cache starts with.
	InitialCapacityInBatches = 16
	// MaxCapacityInBatches bounds a single cache's capacity. Must be a power
	// of two: the lock-free variant uses it as a ring index mask.
	MaxCapacityInBatches = 64
)

// CentralFreeList is the authoritative pool for one size class. InsertRange takes
// ownership of a full batch, RemoveRange hands out exactly n objects or reports a
// genuine out-of-memory condition which the transfer cache never masks.
type CentralFreeList[T any] interface {
	InsertRange(batch []T)
	RemoveRange(n int) ([]T, error)
}

// Manager arbitrates capacity between sibling caches. ShrinkCache tries to reclaim
// one empty batch slot from some cache other than the caller's and reports whether
// a slot was obtained; the manager, not the cache, picks the victim.
type Manager interface {
	NumObjectsToMove(sizeClass int) int
	ShrinkCache(sizeClass int) bool
}

// Cacher is the contract shared by both cache variants. Insert never loses a
// batch: on a full cache with no capacity grant it falls through to the central
// free list. Remove prefers cached batches and falls through on an empty cache.
type Cacher[T any] interface {
	Insert(batch []T)
	Remove(n int) ([]T, error)
	Grow() bool
	Shrink() bool
	HasSpareCapacity() bool
	Length() int
	Capacity() int
	SizeClass() int
	Stats() Stats
}

// Stats is a point-in-time snapshot of one cache's counters.
type Stats struct {
	SizeClass    int    `json:"size_class"`
	BatchSize    int    `json:"batch_size"`
	Capacity     int    `json:"capacity"`
	Occupancy    int    `json:"occupancy"`
	InsertHits   uint64 `json:"insert_hits"`
	InsertMisses uint64 `json:"insert_misses"`
	RemoveHits   uint64 `json:"remove_hits"`
	RemoveMisses uint64 `json:"remove_misses"`
	Grows        uint64 `json:"grows"`
	Shrinks      uint64 `json:"shrinks"`
}
