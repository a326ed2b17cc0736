// Package errors provides structured error types for the cedar-wasm module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the boundary export involved, a field path, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
//		Export("is_authorized").
//		Path("context").
//		Detail("range ends past buffer").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownAddress(addr)
//	err := errors.InvalidMode("Lenient")
//
// Kind-only sentinels (ErrUnknownAddress, ErrInvalidMode, ...) match any
// Phase under errors.Is.
package errors
