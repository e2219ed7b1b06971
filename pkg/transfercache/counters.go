package transfercache

import "sync/atomic"

// counters are shared by both cache variants; hits mean the ring serviced the
// call, misses mean it fell through to the central free list.
type counters struct {
	insertHits   atomic.Uint64
	insertMisses atomic.Uint64
	removeHits   atomic.Uint64
	removeMisses atomic.Uint64
	grows        atomic.Uint64
	shrinks      atomic.Uint64
}

func (c *counters) snapshot(st *Stats) {
	st.InsertHits = c.insertHits.Load()
	st.InsertMisses = c.insertMisses.Load()
	st.RemoveHits = c.removeHits.Load()
	st.RemoveMisses = c.removeMisses.Load()
	st.Grows = c.grows.Load()
	st.Shrinks = c.shrinks.Load()
}
