//go:build wasm

package arena

import "unsafe"

// LinearBacking backs records with Go slices on the wasm heap; an address
// is the slice's offset in linear memory. The arena's reference to the
// slice is what keeps the garbage collector from reclaiming it.
type LinearBacking struct{}

// NewLinearBacking creates the linear-memory backing.
func NewLinearBacking() LinearBacking {
	return LinearBacking{}
}

// Reserve implements Backing. Zero-sized requests still get one byte of
// capacity so that every live record has its own address.
func (LinearBacking) Reserve(size uint32) (Addr, []byte, error) {
	capacity := size
	if capacity == 0 {
		capacity = 1
	}
	buf := make([]byte, size, capacity)
	addr := Addr(uintptr(unsafe.Pointer(unsafe.SliceData(buf))))
	return addr, buf, nil
}
