package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseAllocate  Phase = "allocate"  // arena reservation and release
	PhaseDecode    Phase = "decode"    // guest memory to Go text
	PhaseEncode    Phase = "encode"    // Go text to guest memory
	PhaseEntities  Phase = "entities"  // entity graph replacement
	PhasePolicies  Phase = "policies"  // policy set replacement
	PhaseSchema    Phase = "schema"    // schema parsing
	PhaseValidate  Phase = "validate"  // static policy validation
	PhaseAuthorize Phase = "authorize" // request evaluation
	PhaseLoad      Phase = "load"      // guest module loading
	PhaseRuntime   Phase = "runtime"   // calls across the boundary
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound       Kind = "not_found"
	KindSizeMismatch   Kind = "size_mismatch"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindInvalidUTF8    Kind = "invalid_utf8"
	KindInvalidInput   Kind = "invalid_input"
	KindInvalidMode    Kind = "invalid_mode"
	KindInvalidData    Kind = "invalid_data"
	KindAllocation     Kind = "allocation"
	KindOverflow       Kind = "overflow"
	KindNotInitialized Kind = "not_initialized"
	KindInstantiation  Kind = "instantiation"
	KindTrap           Kind = "trap"
	KindClosed         Kind = "closed"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Export string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Export != "" {
		b.WriteString(" in ")
		b.WriteString(e.Export)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Sentinels for errors.Is matching on Kind regardless of Phase.
var (
	ErrUnknownAddress = &Error{Kind: KindNotFound}
	ErrSizeMismatch   = &Error{Kind: KindSizeMismatch}
	ErrInvalidUTF8    = &Error{Kind: KindInvalidUTF8}
	ErrInvalidMode    = &Error{Kind: KindInvalidMode}
	ErrTrap           = &Error{Kind: KindTrap}
	ErrClosed         = &Error{Kind: KindClosed}
)

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Export sets the boundary export the error belongs to
func (b *Builder) Export(name string) *Builder {
	b.err.Export = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UnknownAddress creates an error for a release of an address that is not live
func UnknownAddress(addr uint32) *Error {
	return &Error{
		Phase:  PhaseAllocate,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("unknown address %#x", addr),
		Value:  addr,
	}
}

// SizeMismatch creates an error for a release whose size differs from the allocation
func SizeMismatch(addr, allocated, given uint32) *Error {
	return &Error{
		Phase:  PhaseAllocate,
		Kind:   KindSizeMismatch,
		Detail: fmt.Sprintf("address %#x holds %d bytes, release asked for %d", addr, allocated, given),
		Value:  given,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Cause:  cause,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// OutOfBounds creates an error for a memory range outside any live buffer
func OutOfBounds(phase Phase, addr, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("range [%#x, %#x) is outside any live buffer", addr, uint64(addr)+uint64(length)),
		Value:  addr,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, value any, limit string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: fmt.Sprintf("value %v overflows %s", value, limit),
		Value:  value,
	}
}

// InvalidMode creates an error for an unrecognised validation mode
func InvalidMode(mode string) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindInvalidMode,
		Detail: fmt.Sprintf("invalid validation mode %q", mode),
		Value:  mode,
	}
}

// NotInitialized creates a not-initialized error for missing module/instance
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// ParseFailed creates a parsing error
func ParseFailed(phase Phase, what string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate guest module",
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Trap creates an error for a guest call that aborted
func Trap(export string, cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindTrap,
		Export: export,
		Detail: "guest aborted",
		Cause:  cause,
	}
}

// Closed creates an error for use of a closed engine
func Closed(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: "engine closed",
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
