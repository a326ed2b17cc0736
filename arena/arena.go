package arena

import (
	cedarwasm "github.com/wippyai/cedar-wasm"
	"github.com/wippyai/cedar-wasm/errors"
)

type record struct {
	buf  []byte
	size uint32
}

// Arena maps live addresses to the buffers backing them.
type Arena struct {
	backing   Backing
	records   map[Addr]record
	observers []Observer
}

// New creates an empty arena over backing.
func New(backing Backing) *Arena {
	return &Arena{
		backing: backing,
		records: make(map[Addr]record),
	}
}

// Allocate reserves size bytes and returns the address of the first byte.
func (a *Arena) Allocate(size uint32) (Addr, error) {
	addr, buf, err := a.backing.Reserve(size)
	if err != nil {
		return 0, errors.AllocationFailed(errors.PhaseAllocate, size, err)
	}
	if addr == 0 || uint32(len(buf)) != size {
		return 0, errors.New(errors.PhaseAllocate, errors.KindAllocation).
			Detail("backing returned %d bytes at %#x for a %d byte request", len(buf), uint32(addr), size).
			Build()
	}
	if _, live := a.records[addr]; live {
		return 0, errors.New(errors.PhaseAllocate, errors.KindAllocation).
			Detail("backing reissued live address %#x", uint32(addr)).
			Build()
	}

	a.records[addr] = record{buf: buf, size: size}
	a.notify(Event{Type: EventAllocated, Addr: addr, Size: size, Live: len(a.records)})
	return addr, nil
}

// Deallocate releases the record at addr. size must equal the size passed
// to Allocate.
func (a *Arena) Deallocate(addr Addr, size uint32) error {
	rec, ok := a.records[addr]
	if !ok {
		return errors.UnknownAddress(uint32(addr))
	}
	if rec.size != size {
		return errors.SizeMismatch(uint32(addr), rec.size, size)
	}

	delete(a.records, addr)
	a.notify(Event{Type: EventFreed, Addr: addr, Size: size, Live: len(a.records)})
	return nil
}

// Bytes returns the live slice covering [addr, addr+length). The range must
// lie inside a single live record. The slice aliases arena memory.
func (a *Arena) Bytes(addr Addr, length uint32) ([]byte, error) {
	return a.span(errors.PhaseDecode, addr, length)
}

func (a *Arena) span(phase errors.Phase, addr Addr, length uint32) ([]byte, error) {
	if rec, ok := a.records[addr]; ok {
		if length > rec.size {
			return nil, errors.OutOfBounds(phase, uint32(addr), length)
		}
		return rec.buf[:length:length], nil
	}

	end := uint64(addr) + uint64(length)
	for base, rec := range a.records {
		if addr > base && end <= uint64(base)+uint64(rec.size) {
			off := uint32(addr - base)
			return rec.buf[off : off+length : off+length], nil
		}
	}
	return nil, errors.OutOfBounds(phase, uint32(addr), length)
}

// Contains reports whether addr is a live record.
func (a *Arena) Contains(addr Addr) bool {
	_, ok := a.records[addr]
	return ok
}

// Size returns the allocated size of the record at addr.
func (a *Arena) Size(addr Addr) (uint32, bool) {
	rec, ok := a.records[addr]
	return rec.size, ok
}

// Len returns the number of live records.
func (a *Arena) Len() int {
	return len(a.records)
}

// Each calls fn for every live record until fn returns false.
func (a *Arena) Each(fn func(addr Addr, size uint32) bool) {
	for addr, rec := range a.records {
		if !fn(addr, rec.size) {
			return
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (a *Arena) Subscribe(o Observer) {
	a.observers = append(a.observers, o)
}

func (a *Arena) notify(e Event) {
	for _, o := range a.observers {
		o.OnArenaEvent(e)
	}
}

// Read implements cedarwasm.Memory. The returned slice aliases arena memory.
func (a *Arena) Read(offset uint32, length uint32) ([]byte, error) {
	return a.span(errors.PhaseDecode, Addr(offset), length)
}

// Write implements cedarwasm.Memory.
func (a *Arena) Write(offset uint32, data []byte) error {
	dst, err := a.span(errors.PhaseEncode, Addr(offset), uint32(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

// Alloc implements cedarwasm.Allocator.
func (a *Arena) Alloc(size uint32) (uint32, error) {
	addr, err := a.Allocate(size)
	return uint32(addr), err
}

// Free implements cedarwasm.Allocator.
func (a *Arena) Free(ptr, size uint32) error {
	return a.Deallocate(Addr(ptr), size)
}

var (
	_ cedarwasm.Memory    = (*Arena)(nil)
	_ cedarwasm.Allocator = (*Arena)(nil)
)
