// Package sharded provides a lock-striped map keyed by address, used to track
// live page allocations without funnelling every Free through one mutex.
package sharded

import (
	"sync"
	"sync/atomic"
)

// ShardCount must be a power of two, keys are striped with a mask.
const ShardCount uint64 = 64

// keys are page-aligned addresses, so the low bits carry no entropy.
const shardShift = 12

type shard[V any] struct {
	sync.RWMutex
	items map[uintptr]V
}

// Map stripes entries over ShardCount independently locked shards and keeps a
// running count of entries and of the bytes they pin.
type Map[V any] struct {
	shards [ShardCount]*shard[V]
	size   func(V) uintptr
	len    atomic.Int64
	mem    atomic.Int64
}

// NewMap builds an empty map. size reports how many bytes an entry pins; nil
// disables memory accounting.
func NewMap[V any](size func(V) uintptr) *Map[V] {
	m := &Map[V]{size: size}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[uintptr]V)}
	}
	return m
}

func (m *Map[V]) shardFor(key uintptr) *shard[V] {
	return m.shards[(uint64(key)>>shardShift)&(ShardCount-1)]
}

func (m *Map[V]) Set(key uintptr, value V) {
	s := m.shardFor(key)
	s.Lock()
	s.items[key] = value
	s.Unlock()

	m.len.Add(1)
	if m.size != nil {
		m.mem.Add(int64(m.size(value)))
	}
}

func (m *Map[V]) Get(key uintptr) (value V, found bool) {
	s := m.shardFor(key)
	s.RLock()
	v, ok := s.items[key]
	s.RUnlock()
	return v, ok
}

func (m *Map[V]) Del(key uintptr) (value V, found bool) {
	s := m.shardFor(key)
	s.Lock()
	v, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	s.Unlock()

	if ok {
		m.len.Add(-1)
		if m.size != nil {
			m.mem.Add(-int64(m.size(v)))
		}
	}
	return v, ok
}

// Len reports the number of live entries.
func (m *Map[V]) Len() int64 { return m.len.Load() }

// Mem reports the bytes pinned by live entries.
func (m *Map[V]) Mem() int64 { return m.mem.Load() }
