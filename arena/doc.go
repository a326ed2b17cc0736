// Package arena implements the guest-side buffer table behind the
// allocate and deallocate exports.
//
// The host and guest share no garbage collector, so every byte range the
// host writes into or reads from is an explicit record in this table:
//
//	a := arena.New(arena.NewSyntheticBacking())
//
//	// Reserve a buffer, get its address
//	addr, err := a.Allocate(10)
//
//	// Read or write through the address
//	buf, err := a.Bytes(addr, 10)
//
//	// Release it; the size must match the allocation
//	err = a.Deallocate(addr, 10)
//
// # Addresses
//
// An address is unique while its record is live. Releasing an address that
// is not live (double free, or never returned by Allocate) fails with
// errors.ErrUnknownAddress. The table stores the authoritative size and
// rejects a release whose size differs with errors.ErrSizeMismatch,
// leaving the record live.
//
// # Backings
//
// A Backing supplies the memory and decides what an address means:
//
//	LinearBacking     - offset of the buffer in wasm linear memory (GOARCH=wasm)
//	SyntheticBacking  - monotonically increasing, never reused (any platform)
//
// # Memory Management
//
// Records are never reclaimed implicitly. A buffer the host forgets to
// release stays pinned for the life of the module instance.
//
// # Concurrency
//
// Arena is not safe for concurrent use. The guest executes one export at a
// time; hosts that share an Arena across goroutines must serialise access.
package arena
