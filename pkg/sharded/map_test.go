package sharded_test

import (
	"sync"
	"testing"

	"github.com/Borislavv/transfer-cache/pkg/sharded"
	"github.com/stretchr/testify/require"
)

func TestMapTracksEntriesAndBytes(t *testing.T) {
	m := sharded.NewMap[[]byte](func(b []byte) uintptr { return uintptr(cap(b)) })

	m.Set(0x1000, make([]byte, 64))
	m.Set(0x2000, make([]byte, 128))
	require.EqualValues(t, 2, m.Len())
	require.EqualValues(t, 192, m.Mem())

	v, ok := m.Get(0x1000)
	require.True(t, ok)
	require.Len(t, v, 64)

	v, ok = m.Del(0x1000)
	require.True(t, ok)
	require.Len(t, v, 64)
	require.EqualValues(t, 1, m.Len())
	require.EqualValues(t, 128, m.Mem())

	_, ok = m.Del(0x1000)
	require.False(t, ok)
	require.EqualValues(t, 1, m.Len())
}

func TestMapConcurrentDistinctKeys(t *testing.T) {
	m := sharded.NewMap[int](nil)

	const workers, perWorker = 8, 1000
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(base uintptr) {
			defer wg.Done()
			for i := uintptr(0); i < perWorker; i++ {
				key := base + i*4096
				m.Set(key, int(key))
				got, ok := m.Get(key)
				if !ok || got != int(key) {
					t.Errorf("key %#x: got %d, found %v", key, got, ok)
					return
				}
				m.Del(key)
			}
		}(uintptr(w) * perWorker * 4096)
	}
	wg.Wait()

	require.Zero(t, m.Len())
}
