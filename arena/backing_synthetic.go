package arena

import (
	"fmt"
	"math"
)

// syntheticBase keeps the first wasm page out of the address space so a
// zero or small integer is never mistaken for a live address.
const syntheticBase = 1 << 16

// SyntheticBacking issues addresses from a monotonically increasing counter
// and backs them with ordinary Go slices. Addresses are 8-byte aligned and
// never reused, even after release.
type SyntheticBacking struct {
	next uint64
}

// NewSyntheticBacking creates a backing whose first address is 0x10000.
func NewSyntheticBacking() *SyntheticBacking {
	return &SyntheticBacking{next: syntheticBase}
}

// Reserve implements Backing.
func (b *SyntheticBacking) Reserve(size uint32) (Addr, []byte, error) {
	span := uint64(size)
	if span == 0 {
		span = 1
	}
	span = (span + 7) &^ 7

	if b.next+span > math.MaxUint32 {
		return 0, nil, fmt.Errorf("synthetic address space exhausted at %#x", b.next)
	}

	addr := Addr(b.next)
	b.next += span
	return addr, make([]byte, size), nil
}
