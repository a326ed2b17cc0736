package arena

import (
	"errors"
	"testing"

	cwerrors "github.com/wippyai/cedar-wasm/errors"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnArenaEvent(e Event) {
	o.events = append(o.events, e)
}

func newTestArena() *Arena {
	return New(NewSyntheticBacking())
}

func TestArena_AllocateDeallocate(t *testing.T) {
	a := newTestArena()

	addr, err := a.Allocate(10)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if !a.Contains(addr) {
		t.Fatal("expected address to be live after Allocate")
	}
	if err := a.Deallocate(addr, 10); err != nil {
		t.Fatalf("Deallocate failed: %v", err)
	}
	if a.Contains(addr) {
		t.Fatal("expected address to be gone after Deallocate")
	}

	first, err := a.Allocate(10)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	second, err := a.Allocate(10)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct addresses, both were %#x", first)
	}
	if a.Len() != 2 {
		t.Fatalf("expected 2 live records, got %d", a.Len())
	}

	if err := a.Deallocate(first, 10); err != nil {
		t.Fatalf("Deallocate failed: %v", err)
	}
	if a.Contains(first) {
		t.Error("first address should be released")
	}
	if !a.Contains(second) {
		t.Error("second address should still be live")
	}
	if a.Len() != 1 {
		t.Errorf("expected 1 live record, got %d", a.Len())
	}

	if err := a.Deallocate(second, 10); err != nil {
		t.Fatalf("Deallocate failed: %v", err)
	}
	if a.Len() != 0 {
		t.Errorf("expected empty arena, got %d", a.Len())
	}
}

func TestArena_ManyLiveAllocations(t *testing.T) {
	a := newTestArena()
	seen := make(map[Addr]bool)

	for i := uint32(0); i < 64; i++ {
		addr, err := a.Allocate(i)
		if err != nil {
			t.Fatalf("Allocate(%d) failed: %v", i, err)
		}
		if seen[addr] {
			t.Fatalf("address %#x issued twice while live", addr)
		}
		seen[addr] = true
	}
	if a.Len() != 64 {
		t.Fatalf("expected 64 live records, got %d", a.Len())
	}
}

func TestArena_ZeroSize(t *testing.T) {
	a := newTestArena()

	first, err := a.Allocate(0)
	if err != nil {
		t.Fatalf("Allocate(0) failed: %v", err)
	}
	second, err := a.Allocate(0)
	if err != nil {
		t.Fatalf("Allocate(0) failed: %v", err)
	}
	if first == 0 || second == 0 {
		t.Fatal("zero-sized allocations must not return address 0")
	}
	if first == second {
		t.Fatal("zero-sized allocations must still be distinct")
	}
	if err := a.Deallocate(first, 0); err != nil {
		t.Errorf("Deallocate failed: %v", err)
	}
}

func TestArena_DoubleFree(t *testing.T) {
	a := newTestArena()

	addr, err := a.Allocate(4)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if err := a.Deallocate(addr, 4); err != nil {
		t.Fatalf("Deallocate failed: %v", err)
	}

	err = a.Deallocate(addr, 4)
	if !errors.Is(err, cwerrors.ErrUnknownAddress) {
		t.Fatalf("expected unknown address error on double free, got %v", err)
	}
}

func TestArena_UnknownAddress(t *testing.T) {
	a := newTestArena()

	err := a.Deallocate(0x1234, 1)
	if !errors.Is(err, cwerrors.ErrUnknownAddress) {
		t.Fatalf("expected unknown address error, got %v", err)
	}
}

func TestArena_SizeMismatch(t *testing.T) {
	a := newTestArena()

	addr, err := a.Allocate(16)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	err = a.Deallocate(addr, 8)
	if !errors.Is(err, cwerrors.ErrSizeMismatch) {
		t.Fatalf("expected size mismatch error, got %v", err)
	}
	if !a.Contains(addr) {
		t.Fatal("rejected release must leave the record live")
	}

	size, ok := a.Size(addr)
	if !ok || size != 16 {
		t.Errorf("Size = %d, %v; want 16, true", size, ok)
	}
}

func TestArena_Bytes(t *testing.T) {
	a := newTestArena()

	addr, err := a.Allocate(8)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if err := a.Write(uint32(addr), []byte("abcdefgh")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	tests := []struct {
		name    string
		addr    Addr
		length  uint32
		want    string
		wantErr bool
	}{
		{"whole record", addr, 8, "abcdefgh", false},
		{"prefix", addr, 3, "abc", false},
		{"interior", addr + 2, 4, "cdef", false},
		{"suffix", addr + 5, 3, "fgh", false},
		{"past end", addr, 9, "", true},
		{"interior past end", addr + 6, 4, "", true},
		{"unknown", addr + 0x1000, 1, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Bytes(tt.addr, tt.length)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Bytes failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Bytes = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArena_BytesAfterFree(t *testing.T) {
	a := newTestArena()

	addr, err := a.Allocate(4)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if err := a.Deallocate(addr, 4); err != nil {
		t.Fatalf("Deallocate failed: %v", err)
	}
	if _, err := a.Bytes(addr, 4); err == nil {
		t.Fatal("expected error reading a released record")
	}
}

func TestArena_Observer(t *testing.T) {
	a := newTestArena()
	obs := &testObserver{}
	a.Subscribe(obs)

	addr, err := a.Allocate(5)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(obs.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventAllocated || obs.events[0].Addr != addr || obs.events[0].Live != 1 {
		t.Fatalf("unexpected event %+v", obs.events[0])
	}

	if err := a.Deallocate(addr, 5); err != nil {
		t.Fatalf("Deallocate failed: %v", err)
	}
	if len(obs.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(obs.events))
	}
	if obs.events[1].Type != EventFreed || obs.events[1].Live != 0 {
		t.Fatalf("unexpected event %+v", obs.events[1])
	}

	// failed releases are silent
	_ = a.Deallocate(addr, 5)
	if len(obs.events) != 2 {
		t.Errorf("failed release should not notify, got %d events", len(obs.events))
	}
}

type fixedBacking struct {
	addr Addr
}

func (b fixedBacking) Reserve(size uint32) (Addr, []byte, error) {
	return b.addr, make([]byte, size), nil
}

func TestArena_RejectsReissuedAddress(t *testing.T) {
	a := New(fixedBacking{addr: 0x100})

	if _, err := a.Allocate(1); err != nil {
		t.Fatalf("first Allocate failed: %v", err)
	}
	if _, err := a.Allocate(1); err == nil {
		t.Fatal("expected error when backing reissues a live address")
	}
	if a.Len() != 1 {
		t.Errorf("expected 1 live record, got %d", a.Len())
	}
}

func TestSyntheticBacking_Alignment(t *testing.T) {
	b := NewSyntheticBacking()

	for _, size := range []uint32{0, 1, 7, 8, 9, 100} {
		addr, buf, err := b.Reserve(size)
		if err != nil {
			t.Fatalf("Reserve(%d) failed: %v", size, err)
		}
		if addr%8 != 0 {
			t.Errorf("Reserve(%d) returned unaligned address %#x", size, addr)
		}
		if uint32(len(buf)) != size {
			t.Errorf("Reserve(%d) returned %d bytes", size, len(buf))
		}
	}
}
