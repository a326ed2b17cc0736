package host

import "io"

// Config holds configuration for engine creation
type Config struct {
	// Stderr receives the guest's log output. nil discards it.
	Stderr io.Writer

	// ModuleName is the name the guest is instantiated under.
	// Empty means anonymous.
	ModuleName string

	// MemoryLimitPages sets the maximum guest memory in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// NoRecover disables re-instantiation after a guest trap. When set, a
	// trapped engine stays unusable and every later call fails with
	// ErrClosed.
	NoRecover bool
}

// Validation modes accepted by Engine.Validate.
const (
	ValidationModeStrict     = "Strict"
	ValidationModePermissive = "Permissive"
)
