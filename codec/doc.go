// Package codec moves text across the guest boundary.
//
// The boundary ABI only carries scalar integers, so text travels as an
// (address, length) pair into linear memory and results come back packed
// into a single u64:
//
//	packed := codec.Pack(addr, length) // addr<<32 | length
//	addr, length := codec.Unpack(packed)
//
// Decode never trusts the caller: the range must be readable through the
// given Memory and must hold valid UTF-8. Encode always allocates, even for
// empty text, so every encoded result can be released the same way.
package codec
