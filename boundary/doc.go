// Package boundary implements the guest export table on top of an arena
// and an engine state.
//
// Every export takes and returns scalars only. Text crosses the boundary as
// an (address, length) pair into arena memory; text results are written
// into a fresh arena buffer and returned packed into one u64, address in the
// high half. The caller owns every returned buffer and must release it with
// deallocate.
//
// Failures fall into two tiers:
//
//	set_entities, set_policies   recoverable; logged, state kept, message
//	                             available from last_error
//	everything else              fatal; the export panics, which traps the
//	                             guest, and no result is produced
//
// Call dispatches an export by name and turns a panic into an error, so the
// same table can be driven in-process without a WebAssembly runtime.
package boundary
