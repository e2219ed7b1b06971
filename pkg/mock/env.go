package mock

import (
	"math/rand"
	"sync/atomic"

	"github.com/Borislavv/transfer-cache/pkg/transfercache"
)

// Env wires one transfer cache of either variant to mock collaborators, the way
// the multithreaded harness and the unit tests want to drive it.
type Env[T any] struct {
	Manager  *Manager
	FreeList *CentralFreeList[T]
	Cache    transfercache.Cacher[T]
	maker    func(i int) T
	seq      atomic.Int64
}

// NewEnv builds an isolated cache environment. The maker fabricates payload
// objects for inserts and free-list refills; nil means zero values.
func NewEnv[T any](lockFree bool, batchSize int, maker func(i int) T) *Env[T] {
	m := &Manager{BatchSize: batchSize}
	fl := &CentralFreeList[T]{Maker: maker}

	e := &Env[T]{Manager: m, FreeList: fl, maker: maker}
	if lockFree {
		e.Cache = transfercache.NewLockFree[T](1, fl, m)
	} else {
		e.Cache = transfercache.New[T](1, fl, m)
	}
	return e
}

// Insert pushes one batch of n fresh objects through the cache.
func (e *Env[T]) Insert(n int) {
	batch := make([]T, n)
	if e.maker != nil {
		for i := range batch {
			batch[i] = e.maker(int(e.seq.Add(1)))
		}
	}
	e.Cache.Insert(batch)
}

// Remove pulls one batch of n objects through the cache.
func (e *Env[T]) Remove(n int) ([]T, error) {
	return e.Cache.Remove(n)
}

func (e *Env[T]) Shrink() bool { return e.Cache.Shrink() }

func (e *Env[T]) Grow() bool { return e.Cache.Grow() }

// RandomlyPoke performs one random cache operation, biased towards traffic over
// capacity changes. rnd must not be shared between goroutines.
func (e *Env[T]) RandomlyPoke(rnd *rand.Rand) {
	n := e.Manager.BatchSize
	switch rnd.Intn(10) {
	case 0:
		e.Grow()
	case 1:
		e.Shrink()
	case 2, 3, 4, 5:
		e.Insert(n)
	default:
		_, _ = e.Remove(n)
	}
}
