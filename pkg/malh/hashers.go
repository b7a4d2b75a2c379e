package malh

import (
	"github.com/cespare/xxhash"
	"github.com/spaolacci/murmur3"
)

// HashAttr returns the 32-bit hash of an attribute value that the choice
// vector draws bits from. MurmurHash3 is the engine's hash; every relation
// must be read with the hasher it was built with.
func HashAttr(val string) uint32 {
	return murmur3.Sum32([]byte(val))
}

// XxHashAttr returns the xxHash-based 32-bit hash of an attribute value.
func XxHashAttr(val string) uint32 {
	return uint32(xxhash.Sum64String(val))
}
