package codec

import (
	"math"
	"unicode/utf8"

	cedarwasm "github.com/wippyai/cedar-wasm"
	"github.com/wippyai/cedar-wasm/errors"
)

// Decode reads length bytes at addr and returns them as text. It does not
// take ownership of the source buffer.
func Decode(mem cedarwasm.Memory, addr, length uint32) (string, error) {
	if length == 0 {
		return "", nil
	}

	data, err := mem.Read(addr, length)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.InvalidUTF8(errors.PhaseDecode, nil, data)
	}

	// string() copies, so the result outlives the source buffer.
	return string(data), nil
}

// Encode copies text into a freshly allocated buffer and returns its
// address and length. Ownership of the buffer passes to the caller, who
// must release it with the same allocator.
func Encode(alloc cedarwasm.Allocator, mem cedarwasm.Memory, text string) (addr, length uint32, err error) {
	if uint64(len(text)) > math.MaxUint32 {
		return 0, 0, errors.Overflow(errors.PhaseEncode, len(text), "u32 length")
	}
	length = uint32(len(text))

	addr, err = alloc.Alloc(length)
	if err != nil {
		return 0, 0, errors.AllocationFailed(errors.PhaseEncode, length, err)
	}
	if length == 0 {
		return addr, 0, nil
	}

	if err := mem.Write(addr, []byte(text)); err != nil {
		if freeErr := alloc.Free(addr, length); freeErr != nil {
			return 0, 0, errors.Wrap(errors.PhaseEncode, errors.KindAllocation, freeErr, "release after failed write")
		}
		return 0, 0, err
	}
	return addr, length, nil
}

// Pack combines a 32-bit address and a 32-bit length into one u64, address
// in the high half.
func Pack(addr, length uint32) uint64 {
	return uint64(addr)<<32 | uint64(length)
}

// Unpack splits a value produced by Pack.
func Unpack(packed uint64) (addr, length uint32) {
	return uint32(packed >> 32), uint32(packed)
}
