package transfercache_test

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/Borislavv/transfer-cache/pkg/mock"
	"github.com/Borislavv/transfer-cache/pkg/transfercache"
	"github.com/stretchr/testify/require"
)

// threadManager drives a worker body on several goroutines until stopped, the
// counterpart of the randomized multithreaded harness around mock.Env.
type threadManager struct {
	stop chan struct{}
	wg   sync.WaitGroup
}

func startThreads(n int, body func(rnd *rand.Rand)) *threadManager {
	tm := &threadManager{stop: make(chan struct{})}
	for i := 0; i < n; i++ {
		tm.wg.Add(1)
		go func(seed int64) {
			defer tm.wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-tm.stop:
					return
				default:
					body(rnd)
				}
			}
		}(int64(i + 1))
	}
	return tm
}

func (tm *threadManager) Stop() {
	close(tm.stop)
	tm.wg.Wait()
}

func runThreaded(t *testing.T, e *mock.Env[int], body func(rnd *rand.Rand), d time.Duration) {
	t.Helper()
	if testing.Short() {
		d = 50 * time.Millisecond
	}

	tm := startThreads(8, body)
	time.Sleep(d)
	tm.Stop()

	// The packed-word invariant must hold on the quiesced cache, and every held
	// batch must drain back out intact.
	occupancy, capacity := e.Cache.Length(), e.Cache.Capacity()
	require.GreaterOrEqual(t, occupancy, 0)
	require.LessOrEqual(t, occupancy, capacity)
	require.LessOrEqual(t, capacity, transfercache.MaxCapacityInBatches)

	for e.Cache.Length() > 0 {
		batch, err := e.Remove(batchSize)
		require.NoError(t, err)
		require.Len(t, batch, batchSize)
	}
}

func TestLockFreeTransferCache_MultiThreadedUnbiased(t *testing.T) {
	e := newLockFreeEnv()
	runThreaded(t, e, e.RandomlyPoke, 300*time.Millisecond)
}

func TestLockFreeTransferCache_MultiThreadedBiasedInsert(t *testing.T) {
	e := newLockFreeEnv()
	runThreaded(t, e, func(rnd *rand.Rand) {
		if rnd.Intn(4) == 0 {
			e.RandomlyPoke(rnd)
			return
		}
		e.Insert(batchSize)
	}, 300*time.Millisecond)
}

func TestLockFreeTransferCache_MultiThreadedBiasedRemove(t *testing.T) {
	e := newLockFreeEnv()
	runThreaded(t, e, func(rnd *rand.Rand) {
		if rnd.Intn(4) == 0 {
			e.RandomlyPoke(rnd)
			return
		}
		_, _ = e.Remove(batchSize)
	}, 300*time.Millisecond)
}

func TestLockFreeTransferCache_MultiThreadedBiasedShrink(t *testing.T) {
	e := newLockFreeEnv()
	runThreaded(t, e, func(rnd *rand.Rand) {
		if rnd.Intn(4) == 0 {
			e.RandomlyPoke(rnd)
			return
		}
		e.Shrink()
	}, 300*time.Millisecond)
}

func TestLockFreeTransferCache_MultiThreadedBiasedGrow(t *testing.T) {
	e := newLockFreeEnv()
	runThreaded(t, e, func(rnd *rand.Rand) {
		if rnd.Intn(4) == 0 {
			e.RandomlyPoke(rnd)
			return
		}
		e.Grow()
	}, 300*time.Millisecond)
}

func TestTransferCache_MultiThreadedUnbiased(t *testing.T) {
	e := newLockedEnv()
	runThreaded(t, e, e.RandomlyPoke, 300*time.Millisecond)
}
