package host

import (
	"context"

	cedarwasm "github.com/wippyai/cedar-wasm"
	"github.com/wippyai/cedar-wasm/arena"
	"github.com/wippyai/cedar-wasm/boundary"
	"github.com/wippyai/cedar-wasm/errors"
)

// Guest is one instantiated guest module.
type Guest interface {
	// Call invokes an export. A trap is returned as an ErrTrap error.
	Call(ctx context.Context, name string, params ...uint64) ([]uint64, error)
	// Memory gives access to the guest's linear memory.
	Memory() cedarwasm.Memory
	// Close releases the instance.
	Close(ctx context.Context) error
}

// GuestFactory instantiates a fresh guest.
type GuestFactory func(ctx context.Context) (Guest, error)

// guestAllocator calls the guest's allocate and deallocate exports.
type guestAllocator struct {
	ctx   context.Context
	guest Guest
}

func (a guestAllocator) Alloc(size uint32) (uint32, error) {
	res, err := a.guest.Call(a.ctx, boundary.ExportAllocate, uint64(size))
	if err != nil {
		return 0, err
	}
	if len(res) != 1 {
		return 0, errors.New(errors.PhaseRuntime, errors.KindInvalidData).
			Export(boundary.ExportAllocate).
			Detail("expected 1 result, got %d", len(res)).
			Build()
	}
	return uint32(res[0]), nil
}

func (a guestAllocator) Free(ptr, size uint32) error {
	_, err := a.guest.Call(a.ctx, boundary.ExportDeallocate, uint64(ptr), uint64(size))
	return err
}

var _ cedarwasm.Allocator = guestAllocator{}

// inProcessGuest runs the boundary table directly on the host.
type inProcessGuest struct {
	module *boundary.Module
	closed bool
}

// InProcess returns a factory for guests that run the export table in the
// host process over a synthetic address space. No WebAssembly runtime is
// involved.
func InProcess() GuestFactory {
	return func(context.Context) (Guest, error) {
		return &inProcessGuest{module: boundary.New(arena.NewSyntheticBacking())}, nil
	}
}

func (g *inProcessGuest) Call(_ context.Context, name string, params ...uint64) ([]uint64, error) {
	if g.closed {
		return nil, errors.Closed(errors.PhaseRuntime)
	}
	res, err := g.module.Call(name, params...)
	if errors.Is(err, errors.ErrTrap) {
		// A trapped wasm instance is unusable; mirror that.
		g.closed = true
	}
	return res, err
}

func (g *inProcessGuest) Memory() cedarwasm.Memory {
	return g.module.Arena()
}

func (g *inProcessGuest) Close(context.Context) error {
	g.closed = true
	return nil
}
