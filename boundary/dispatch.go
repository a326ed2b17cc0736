package boundary

import (
	"fmt"

	"github.com/wippyai/cedar-wasm/errors"
)

type export struct {
	call    func(m *Module, p []uint32) []uint64
	params  int
	results int
}

var exports = map[string]export{
	ExportAllocate: {params: 1, results: 1, call: func(m *Module, p []uint32) []uint64 {
		return []uint64{uint64(m.Allocate(p[0]))}
	}},
	ExportDeallocate: {params: 2, call: func(m *Module, p []uint32) []uint64 {
		m.Deallocate(p[0], p[1])
		return nil
	}},
	ExportSetEntities: {params: 2, call: func(m *Module, p []uint32) []uint64 {
		m.SetEntities(p[0], p[1])
		return nil
	}},
	ExportSetPolicies: {params: 2, call: func(m *Module, p []uint32) []uint64 {
		m.SetPolicies(p[0], p[1])
		return nil
	}},
	ExportValidate: {params: 4, results: 1, call: func(m *Module, p []uint32) []uint64 {
		return []uint64{m.Validate(p[0], p[1], p[2], p[3])}
	}},
	ExportIsAuthorized: {params: 8, results: 1, call: func(m *Module, p []uint32) []uint64 {
		return []uint64{m.IsAuthorized(p[0], p[1], p[2], p[3], p[4], p[5], p[6], p[7])}
	}},
	ExportIsAuthorizedJSON: {params: 8, results: 1, call: func(m *Module, p []uint32) []uint64 {
		return []uint64{m.IsAuthorizedJSON(p[0], p[1], p[2], p[3], p[4], p[5], p[6], p[7])}
	}},
	ExportLastError: {results: 1, call: func(m *Module, _ []uint32) []uint64 {
		return []uint64{m.LastError()}
	}},
}

// ExportNames lists every export of the guest ABI.
func ExportNames() []string {
	return []string{
		ExportAllocate,
		ExportDeallocate,
		ExportSetEntities,
		ExportSetPolicies,
		ExportValidate,
		ExportIsAuthorized,
		ExportIsAuthorizedJSON,
		ExportLastError,
	}
}

// Call invokes an export by name with wasm-style u64 parameters. A fatal
// export failure is returned as an ErrTrap error instead of propagating
// the panic.
func (m *Module) Call(name string, params ...uint64) (results []uint64, err error) {
	exp, ok := exports[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseRuntime, "export", name)
	}
	if len(params) != exp.params {
		return nil, errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Export(name).
			Detail("expected %d params, got %d", exp.params, len(params)).
			Build()
	}

	args := make([]uint32, len(params))
	for i, p := range params {
		args[i] = uint32(p)
	}

	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			results, err = nil, errors.Trap(name, cause)
		}
	}()
	return exp.call(m, args), nil
}
