package transfercache_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/Borislavv/transfer-cache/pkg/freelist"
	"github.com/Borislavv/transfer-cache/pkg/mock"
	"github.com/Borislavv/transfer-cache/pkg/transfercache"
	"github.com/stretchr/testify/require"
)

const batchSize = 8

func newLockedEnv() *mock.Env[int] {
	return mock.NewEnv(false, batchSize, func(i int) int { return i })
}

func TestTransferCache_IsolatedSmoke(t *testing.T) {
	e := newLockedEnv()

	e.Insert(batchSize)
	e.Insert(batchSize)
	_, err := e.Remove(batchSize)
	require.NoError(t, err)
	_, err = e.Remove(batchSize)
	require.NoError(t, err)

	require.Zero(t, e.FreeList.Inserts(), "no overflow expected")
	require.Zero(t, e.FreeList.Removes(), "no underflow expected")
	require.Zero(t, e.Cache.Length())
}

func TestTransferCache_FetchesFromFreelist(t *testing.T) {
	e := newLockedEnv()

	batch, err := e.Remove(batchSize)
	require.NoError(t, err)
	require.Len(t, batch, batchSize)
	require.EqualValues(t, 1, e.FreeList.Removes())
}

func TestTransferCache_EvictsOtherCaches(t *testing.T) {
	e := newLockedEnv()
	e.Manager.ShrinkFunc = func(int) bool { return true }

	for i := 0; i < transfercache.InitialCapacityInBatches; i++ {
		e.Insert(batchSize)
	}
	e.Insert(batchSize)

	require.Zero(t, e.FreeList.Inserts(), "granted capacity must absorb the overflow")
	require.EqualValues(t, 1, e.Manager.Shrinks())
	require.Equal(t, transfercache.InitialCapacityInBatches+1, e.Cache.Capacity())
	require.Equal(t, transfercache.InitialCapacityInBatches+1, e.Cache.Length())
}

func TestTransferCache_PushesToFreelist(t *testing.T) {
	e := newLockedEnv()
	e.Manager.ShrinkFunc = func(int) bool { return false }

	for i := 0; i < transfercache.InitialCapacityInBatches; i++ {
		e.Insert(batchSize)
	}
	e.Insert(batchSize)

	require.EqualValues(t, 1, e.FreeList.Inserts(), "denied growth must overflow exactly once")
	require.EqualValues(t, 1, e.Manager.Shrinks())
	require.Equal(t, transfercache.InitialCapacityInBatches, e.Cache.Capacity())
	require.Equal(t, transfercache.InitialCapacityInBatches, e.Cache.Length())
}

func TestTransferCache_RemovesInLIFOOrder(t *testing.T) {
	e := newLockedEnv()

	first := []int{1, 2, 3, 4, 5, 6, 7, 8}
	second := []int{11, 12, 13, 14, 15, 16, 17, 18}
	e.Cache.Insert(first)
	e.Cache.Insert(second)

	batch, err := e.Remove(batchSize)
	require.NoError(t, err)
	require.Equal(t, second, batch)

	batch, err = e.Remove(batchSize)
	require.NoError(t, err)
	require.Equal(t, first, batch)
}

func TestTransferCache_ShrinkReleasesOnlyEmptySlots(t *testing.T) {
	e := newLockedEnv()

	for i := 0; i < transfercache.InitialCapacityInBatches; i++ {
		e.Insert(batchSize)
	}
	require.False(t, e.Shrink(), "a full cache has no empty slot to give up")

	_, err := e.Remove(batchSize)
	require.NoError(t, err)
	require.True(t, e.Shrink())
	require.Equal(t, transfercache.InitialCapacityInBatches-1, e.Cache.Capacity())
}

func TestTransferCache_GrowStopsAtMaxCapacity(t *testing.T) {
	e := newLockedEnv()

	for e.Cache.Capacity() < transfercache.MaxCapacityInBatches {
		require.True(t, e.Grow())
	}
	require.False(t, e.Grow())
	require.Equal(t, transfercache.MaxCapacityInBatches, e.Cache.Capacity())
}

func TestTransferCache_CapacityInvariantHolds(t *testing.T) {
	e := newLockedEnv()
	rnd := rand.New(rand.NewSource(42))

	for i := 0; i < 10_000; i++ {
		e.RandomlyPoke(rnd)

		occupancy, capacity := e.Cache.Length(), e.Cache.Capacity()
		require.GreaterOrEqual(t, occupancy, 0)
		require.LessOrEqual(t, occupancy, capacity)
		require.LessOrEqual(t, capacity, transfercache.MaxCapacityInBatches)
	}
}

func TestTransferCache_NoBatchIsEverLost(t *testing.T) {
	e := newLockedEnv()
	rnd := rand.New(rand.NewSource(7))

	var inserted, removed int
	for i := 0; i < 5_000; i++ {
		if rnd.Intn(2) == 0 {
			e.Insert(batchSize)
			inserted += batchSize
		} else {
			batch, err := e.Remove(batchSize)
			require.NoError(t, err)
			removed += len(batch)
		}
	}

	held := e.Cache.Length() * batchSize
	pooled := e.FreeList.Length()
	made := e.FreeList.Made()
	require.Equal(t, inserted+made, removed+held+pooled,
		"every inserted object must be held, pooled or already removed")
}

func TestTransferCache_ExhaustionPropagates(t *testing.T) {
	e := newLockedEnv()
	e.FreeList.FailRemoves = true

	_, err := e.Remove(batchSize)
	require.Error(t, err)
	require.True(t, errors.Is(err, freelist.ErrExhausted))
}

func TestTransferCache_BatchSizeMismatchPanics(t *testing.T) {
	e := newLockedEnv()

	require.Panics(t, func() { e.Cache.Insert(make([]int, batchSize-1)) })
	require.Panics(t, func() { _, _ = e.Cache.Remove(batchSize + 1) })
}
