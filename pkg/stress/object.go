package stress

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// Object is the harness payload: a seed plus its checksum. A torn or fabricated-
// from-garbage object fails Valid, so every object coming back out of the cache
// hierarchy proves it went in whole.
type Object struct {
	Seed uint64
	Sum  uint64
}

func NewObject(seed uint64) Object {
	return Object{Seed: seed, Sum: checksum(seed)}
}

func (o Object) Valid() bool {
	return o.Sum == checksum(o.Seed)
}

func checksum(seed uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], seed)
	return xxh3.Hash(b[:])
}
