package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseDecode,
				Kind:   KindOutOfBounds,
				Path:   []string{"request", "context"},
				Export: "is_authorized",
				Detail: "range ends past buffer",
			},
			contains: []string{"[decode]", "out_of_bounds", "request.context", "in is_authorized", "range ends past buffer"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseAllocate,
				Kind:  KindNotFound,
			},
			contains: []string{"[allocate]", "not_found"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseRuntime,
				Kind:   KindTrap,
				Detail: "guest aborted",
				Cause:  errors.New("wasm error: unreachable"),
			},
			contains: []string{"[runtime]", "trap", "guest aborted", "caused by", "unreachable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEntities,
		Kind:  KindInvalidInput,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseAllocate,
		Kind:  KindNotFound,
	}

	if !err.Is(&Error{Phase: PhaseAllocate, Kind: KindNotFound}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindNotFound}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseAllocate, Kind: KindSizeMismatch}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, ErrUnknownAddress) {
		t.Error("kind-only sentinel should match any phase")
	}
	if errors.Is(err, ErrInvalidMode) {
		t.Error("sentinel of another kind should not match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDecode, KindOutOfBounds).
		Path("args", "schema").
		Export("validate").
		Value(42).
		Cause(cause).
		Detail("length %d past end", 42).
		Build()

	if err.Phase != PhaseDecode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDecode)
	}
	if err.Kind != KindOutOfBounds {
		t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
	}
	if len(err.Path) != 2 || err.Path[0] != "args" || err.Path[1] != "schema" {
		t.Errorf("Path = %v, want [args schema]", err.Path)
	}
	if err.Export != "validate" {
		t.Errorf("Export = %q, want validate", err.Export)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "length 42 past end" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("UnknownAddress", func(t *testing.T) {
		err := UnknownAddress(0x40)
		if !errors.Is(err, ErrUnknownAddress) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNotFound)
		}
		if !strings.Contains(err.Error(), "0x40") {
			t.Errorf("message %q should name the address", err.Error())
		}
	})

	t.Run("SizeMismatch", func(t *testing.T) {
		err := SizeMismatch(0x40, 10, 12)
		if !errors.Is(err, ErrSizeMismatch) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindSizeMismatch)
		}
		if err.Value != uint32(12) {
			t.Errorf("Value = %v, want 12", err.Value)
		}
	})

	t.Run("InvalidUTF8", func(t *testing.T) {
		err := InvalidUTF8(PhaseDecode, []string{"str"}, []byte{0xff, 0xfe})
		if !errors.Is(err, ErrInvalidUTF8) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidUTF8)
		}
		if !strings.Contains(err.Detail, "fffe") {
			t.Errorf("Detail %q should preview the bytes", err.Detail)
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(PhaseEncode, 1024, nil)
		if err.Kind != KindAllocation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAllocation)
		}
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("InvalidMode", func(t *testing.T) {
		err := InvalidMode("Lenient")
		if !errors.Is(err, ErrInvalidMode) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidMode)
		}
		if err.Phase != PhaseValidate {
			t.Errorf("Phase = %v, want %v", err.Phase, PhaseValidate)
		}
	})

	t.Run("Trap", func(t *testing.T) {
		err := Trap("deallocate", errors.New("unreachable"))
		if !errors.Is(err, ErrTrap) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindTrap)
		}
		if !strings.Contains(err.Error(), "in deallocate") {
			t.Errorf("message %q should name the export", err.Error())
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseDecode, 0x10, 4)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if !strings.Contains(err.Detail, "0x14") {
			t.Errorf("Detail %q should show the range end", err.Detail)
		}
	})
}
