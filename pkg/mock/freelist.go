// Package mock provides swappable transfer-cache collaborators for deterministic
// unit tests and for the randomized multithreaded harness: a counting central
// free list, a scriptable manager and a fake environment driving one cache.
package mock

import (
	"sync"
	"sync/atomic"

	"github.com/Borislavv/transfer-cache/pkg/freelist"
)

// CentralFreeList is an in-memory stand-in for the real central free list. It
// counts InsertRange/RemoveRange calls and fabricates objects through Maker when
// drained, or fails with freelist.ErrExhausted when told to.
type CentralFreeList[T any] struct {
	mu      sync.Mutex
	objects []T
	// Maker produces the i-th fabricated object. Nil means fabricate zero values.
	Maker func(i int) T
	// FailRemoves makes RemoveRange report exhaustion instead of fabricating.
	FailRemoves bool
	made        int
	inserts     atomic.Uint64
	removes     atomic.Uint64
}

func (f *CentralFreeList[T]) InsertRange(batch []T) {
	f.mu.Lock()
	f.objects = append(f.objects, batch...)
	f.mu.Unlock()
	f.inserts.Add(1)
}

func (f *CentralFreeList[T]) RemoveRange(n int) ([]T, error) {
	f.removes.Add(1)

	f.mu.Lock()
	defer f.mu.Unlock()

	batch := make([]T, 0, n)
	for len(batch) < n && len(f.objects) > 0 {
		last := len(f.objects) - 1
		batch = append(batch, f.objects[last])
		f.objects = f.objects[:last]
	}
	for len(batch) < n {
		if f.FailRemoves {
			return nil, freelist.ErrExhausted
		}
		var obj T
		if f.Maker != nil {
			obj = f.Maker(f.made)
		}
		f.made++
		batch = append(batch, obj)
	}
	return batch, nil
}

// Inserts reports how many times InsertRange ran.
func (f *CentralFreeList[T]) Inserts() uint64 { return f.inserts.Load() }

// Removes reports how many times RemoveRange ran.
func (f *CentralFreeList[T]) Removes() uint64 { return f.removes.Load() }

// Length reports the number of pooled objects.
func (f *CentralFreeList[T]) Length() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// Made reports how many objects were fabricated on demand.
func (f *CentralFreeList[T]) Made() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.made
}
