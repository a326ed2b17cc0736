package cedarwasm

// Memory is a bounds-checked view of guest linear memory.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
}

// Allocator reserves and releases buffers inside guest linear memory.
// Free must be called with the size that was passed to Alloc.
type Allocator interface {
	Alloc(size uint32) (uint32, error)
	Free(ptr, size uint32) error
}
