package mock

import "sync/atomic"

// Manager is a scriptable transfer-cache manager for a single isolated cache.
type Manager struct {
	// BatchSize is returned by NumObjectsToMove for every size class.
	BatchSize int
	// ShrinkFunc scripts ShrinkCache. Nil denies every request.
	ShrinkFunc func(sizeClass int) bool
	shrinks    atomic.Uint64
}

func (m *Manager) NumObjectsToMove(int) int { return m.BatchSize }

func (m *Manager) ShrinkCache(sizeClass int) bool {
	m.shrinks.Add(1)
	if m.ShrinkFunc == nil {
		return false
	}
	return m.ShrinkFunc(sizeClass)
}

// Shrinks reports how many times ShrinkCache ran.
func (m *Manager) Shrinks() uint64 { return m.shrinks.Load() }
