package memalign

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// nextSize walks a size sweep that is dense for small sizes and sparse for
// large ones.
func nextSize(size uintptr) uintptr { return size + 7 + size/16 }

func fill(b []byte, seed int) {
	for i := range b {
		b[i] = byte((seed + i) & 0xff)
	}
}

func valid(t *testing.T, b []byte, seed int) {
	t.Helper()
	for i := range b {
		if b[i] != byte((seed+i)&0xff) {
			t.Fatalf("byte %d corrupted: got %#x", i, b[i])
		}
	}
}

func TestAlignedAlloc(t *testing.T) {
	for align := ptrSize; align <= MaxAlign; align <<= 1 {
		for size := uintptr(0); size < 1<<20; size = nextSize(size) {
			b, err := AlignedAlloc(align, size)
			require.NoError(t, err)
			require.Zero(t, addrOf(b)%align, "align=%d size=%d", align, size)
			require.Len(t, b, int(size))
			fill(b, int(size))
			valid(t, b, int(size))
			Free(b)
		}
	}
}

func TestAlignedAllocInvalidAlignmentPanics(t *testing.T) {
	for _, align := range []uintptr{0, 1, ptrSize / 2, ptrSize + 1, 4097, 2 * MaxAlign} {
		require.Panics(t, func() { _, _ = AlignedAlloc(align, 64) }, "align=%d", align)
	}
}

func TestAlignedAllocOverflowingSize(t *testing.T) {
	var zero uintptr
	for i := uintptr(1); i < 10; i++ {
		b, err := AlignedAlloc(1024, zero-1024*i)
		require.ErrorIs(t, err, unix.ENOMEM)
		require.Nil(t, b)
	}
}

func TestMemalign(t *testing.T) {
	for align := uintptr(1); align <= 1<<20; align <<= 1 {
		for size := uintptr(0); size < 1<<16; size = nextSize(size) {
			b, err := Memalign(align, size)
			require.NoError(t, err)
			require.Zero(t, addrOf(b)%align, "align=%d size=%d", align, size)
			fill(b, int(size))
			valid(t, b, int(size))
			Free(b)
		}
	}
}

func TestMemalignInvalidAlignment(t *testing.T) {
	for _, align := range []uintptr{0, 3, 12, 4097} {
		b, err := Memalign(align, 64)
		require.ErrorIs(t, err, unix.EINVAL, "align=%d", align)
		require.Nil(t, b)
	}
}

func TestPosixMemalign(t *testing.T) {
	for align := ptrSize; align <= 1<<20; align <<= 1 {
		for size := uintptr(0); size < 1<<16; size = nextSize(size) {
			b, err := PosixMemalign(align, size)
			require.NoError(t, err)
			require.Zero(t, addrOf(b)%align, "align=%d size=%d", align, size)
			fill(b, int(size))
			valid(t, b, int(size))
			Free(b)
		}
	}
}

func TestPosixMemalignInvalidAlignment(t *testing.T) {
	for _, align := range []uintptr{0, ptrSize / 2, ptrSize + 1, 4097} {
		b, err := PosixMemalign(align, 64)
		require.ErrorIs(t, err, unix.EINVAL, "align=%d", align)
		require.Nil(t, b)
	}
}

func TestPosixMemalignOverflowingSize(t *testing.T) {
	var zero uintptr
	for i := uintptr(1); i < 10; i++ {
		b, err := PosixMemalign(1024, zero-1024*i)
		require.ErrorIs(t, err, unix.ENOMEM)
		require.Nil(t, b)
	}
}

func TestValloc(t *testing.T) {
	page := uintptr(os.Getpagesize())
	for size := uintptr(0); size < 1<<18; size = nextSize(size) {
		b, err := Valloc(size)
		require.NoError(t, err)
		require.Zero(t, addrOf(b)%page, "size=%d", size)
		require.Len(t, b, int(size))
		fill(b, int(size))
		valid(t, b, int(size))
		Free(b)
	}
}

func TestPvalloc(t *testing.T) {
	page := uintptr(os.Getpagesize())
	for size := uintptr(0); size < 1<<18; size = nextSize(size) {
		b, err := Pvalloc(size)
		require.NoError(t, err)
		require.Zero(t, addrOf(b)%page, "size=%d", size)
		require.Zero(t, uintptr(len(b))%page, "usable size must be whole pages")
		require.GreaterOrEqual(t, uintptr(len(b)), size)
		fill(b, int(size))
		valid(t, b, int(size))
		Free(b)
	}
}

func TestPvallocZeroGivesOneWritablePage(t *testing.T) {
	page := os.Getpagesize()
	b, err := Pvalloc(0)
	require.NoError(t, err)
	require.Len(t, b, page)
	fill(b, 1)
	valid(t, b, 1)
	Free(b)
}

func TestReallocPreservesContent(t *testing.T) {
	b, err := AlignedAlloc(64, 128)
	require.NoError(t, err)
	fill(b, 5)

	bigger, err := Realloc(b, 256)
	require.NoError(t, err)
	require.Len(t, bigger, 256)
	valid(t, bigger[:128], 5)

	smaller, err := Realloc(bigger, 64)
	require.NoError(t, err)
	require.Len(t, smaller, 64)
	valid(t, smaller, 5)
	Free(smaller)
}

func TestReallocFromPageAllocation(t *testing.T) {
	b, err := Valloc(100)
	require.NoError(t, err)
	fill(b, 9)

	moved, err := Realloc(b, 300)
	require.NoError(t, err)
	valid(t, moved[:100], 9)
	Free(moved)
}

func TestFreeToleratesForeignBuffers(t *testing.T) {
	Free(nil)
	Free(make([]byte, 32))
}

func TestMappedBytesTracksPageAllocations(t *testing.T) {
	page := os.Getpagesize()
	before := MappedBytes()

	a, err := Valloc(uintptr(page))
	require.NoError(t, err)
	b, err := Pvalloc(1)
	require.NoError(t, err)
	require.Equal(t, before+2*int64(page), MappedBytes())

	Free(a)
	Free(b)
	require.Equal(t, before, MappedBytes())
}
