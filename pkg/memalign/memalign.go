// Package memalign implements the aligned-allocation entry points of the
// allocator boundary: alignment- and overflow-checked wrappers around plain
// buffer allocation, plus page-aligned allocation backed by anonymous mmap.
// Failure is always a returned error (POSIX-shaped where the contract asks for
// it), never a truncated size; invalid alignment on the aligned_alloc path is a
// programmer error and panics.
package memalign

import (
	"math"
	"os"
	"unsafe"

	"github.com/Borislavv/transfer-cache/pkg/sharded"
	"golang.org/x/sys/unix"
)

// MaxAlign is the largest alignment AlignedAlloc accepts.
const MaxAlign = 4096

var ptrSize = uintptr(unsafe.Sizeof(uintptr(0)))

// pageAllocs tracks mmap-backed buffers so Free can unmap them. Slice-backed
// buffers are garbage collected and need no bookkeeping.
var pageAllocs = sharded.NewMap[[]byte](func(b []byte) uintptr { return uintptr(cap(b)) })

// MappedBytes reports how much anonymous memory Valloc and Pvalloc currently
// hold mapped.
func MappedBytes() int64 { return pageAllocs.Mem() }

func isPowerOfTwo(v uintptr) bool { return v != 0 && v&(v-1) == 0 }

// addrOf returns the address of the buffer's backing storage, valid for
// zero-length results too.
func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// alloc over-allocates by align and offsets into the buffer. Overflow of
// size+align and sizes beyond the address space report ENOMEM.
func alloc(align, size uintptr) ([]byte, error) {
	total := size + align
	if total < size || total > math.MaxInt {
		return nil, unix.ENOMEM
	}
	raw := make([]byte, total)
	var off uintptr
	if rem := addrOf(raw) % align; rem != 0 {
		off = align - rem
	}
	return raw[off : off+size], nil
}

// AlignedAlloc returns a buffer of size bytes whose address is a multiple of
// align. Align must be a power of two, at least the pointer size and at most
// MaxAlign; violating that is a fatal precondition, not an error.
func AlignedAlloc(align, size uintptr) ([]byte, error) {
	if !isPowerOfTwo(align) || align < ptrSize || align > MaxAlign {
		panic("memalign: AlignedAlloc alignment must be a power of two within [pointer size, MaxAlign]")
	}
	return alloc(align, size)
}

// Memalign is AlignedAlloc without the upper alignment bound: any power of two
// is accepted. Invalid alignment reports EINVAL.
func Memalign(align, size uintptr) ([]byte, error) {
	if !isPowerOfTwo(align) {
		return nil, unix.EINVAL
	}
	return alloc(align, size)
}

// PosixMemalign follows the posix_memalign contract: EINVAL for a non-power-of-
// two or sub-pointer-size alignment, ENOMEM on overflow or exhaustion. On
// failure no buffer is returned.
func PosixMemalign(align, size uintptr) ([]byte, error) {
	if !isPowerOfTwo(align) || align < ptrSize {
		return nil, unix.EINVAL
	}
	return alloc(align, size)
}

// Valloc returns a page-aligned buffer of size usable bytes.
func Valloc(size uintptr) ([]byte, error) {
	return pageAlloc(size, size)
}

// Pvalloc rounds the usable size up to a whole number of pages, so the entire
// returned region is writable. Pvalloc(0) yields one writable page.
func Pvalloc(size uintptr) ([]byte, error) {
	page := uintptr(os.Getpagesize())
	rounded := (size + page - 1) &^ (page - 1)
	if rounded < size {
		return nil, unix.ENOMEM
	}
	if rounded == 0 {
		rounded = page
	}
	return pageAlloc(rounded, rounded)
}

// pageAlloc maps length bytes of fresh anonymous memory (page-aligned by
// construction) and hands back the first usable bytes of it.
func pageAlloc(usable, length uintptr) ([]byte, error) {
	if length > math.MaxInt {
		return nil, unix.ENOMEM
	}
	mapLen := length
	if mapLen == 0 {
		mapLen = uintptr(os.Getpagesize())
	}
	raw, err := unix.Mmap(-1, 0, int(mapLen),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, unix.ENOMEM
	}

	pageAllocs.Set(addrOf(raw), raw)

	return raw[:usable], nil
}

// Realloc returns a buffer of the new size preserving content up to
// min(old, new) bytes. The original alignment is not preserved. The old buffer
// is released.
func Realloc(old []byte, size uintptr) ([]byte, error) {
	if size > math.MaxInt {
		return nil, unix.ENOMEM
	}
	fresh := make([]byte, size)
	copy(fresh, old)
	Free(old)
	return fresh, nil
}

// Free releases a buffer obtained from this package. Page allocations are
// unmapped; everything else is left to the garbage collector.
func Free(b []byte) {
	if b == nil {
		return
	}
	if raw, ok := pageAllocs.Del(addrOf(b)); ok {
		_ = unix.Munmap(raw)
	}
}
