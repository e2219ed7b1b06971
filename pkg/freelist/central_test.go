package freelist_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/Borislavv/transfer-cache/pkg/freelist"
	"github.com/stretchr/testify/require"
)

func TestCentral_RoundTripsInFIFOOrder(t *testing.T) {
	fl := freelist.NewCentral[int](2, nil)

	fl.InsertRange([]int{1, 2, 3, 4})
	fl.InsertRange([]int{5, 6, 7, 8})
	require.Equal(t, 8, fl.Length())

	batch, err := fl.RemoveRange(4)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4}, batch)
	require.Equal(t, 4, fl.Length())
	require.EqualValues(t, 2, fl.Inserts())
	require.EqualValues(t, 1, fl.Removes())
	require.Zero(t, fl.Spans(), "pooled objects must be reused before allocating")
}

func TestCentral_AllocatesSpansOnDemand(t *testing.T) {
	next := 0
	fl := freelist.NewCentral(2, func() (int, error) {
		next++
		return next, nil
	})

	batch, err := fl.RemoveRange(4)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4}, batch)

	// One span of spanSize*batchSize objects covers the request with leftovers.
	require.EqualValues(t, 1, fl.Spans())
	require.EqualValues(t, 8, fl.Allocated())
	require.Equal(t, 4, fl.Length())

	// The leftovers serve the next request without a second span.
	_, err = fl.RemoveRange(4)
	require.NoError(t, err)
	require.EqualValues(t, 1, fl.Spans())
}

func TestCentral_TerminalWithoutAllocator(t *testing.T) {
	fl := freelist.NewCentral[int](4, nil)
	fl.InsertRange([]int{1, 2})

	_, err := fl.RemoveRange(4)
	require.Error(t, err)
	require.True(t, errors.Is(err, freelist.ErrExhausted))
	require.Equal(t, 2, fl.Length(), "a failed remove must not consume pooled objects")
}

func TestCentral_AllocationFailureKeepsCause(t *testing.T) {
	cause := errors.New("mmap failed")
	fl := freelist.NewCentral(1, func() (int, error) { return 0, cause })

	_, err := fl.RemoveRange(2)
	require.Error(t, err)
	require.True(t, errors.Is(err, freelist.ErrExhausted))
	require.True(t, errors.Is(err, cause))
}

func TestCentral_ConcurrentTrafficConservesObjects(t *testing.T) {
	fl := freelist.NewCentral[int](1, func() (int, error) { return 0, nil })

	const workers, rounds, batch = 8, 500, 4
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				got, err := fl.RemoveRange(batch)
				if err != nil {
					t.Error(err)
					return
				}
				fl.InsertRange(got)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int(fl.Allocated()), fl.Length(),
		"everything allocated must be back in the pool")
}
