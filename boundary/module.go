package boundary

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/wippyai/cedar-wasm/arena"
	"github.com/wippyai/cedar-wasm/codec"
	"github.com/wippyai/cedar-wasm/engine"
	"github.com/wippyai/cedar-wasm/errors"
)

// Export names of the guest ABI.
const (
	ExportAllocate         = "allocate"
	ExportDeallocate       = "deallocate"
	ExportSetEntities      = "set_entities"
	ExportSetPolicies      = "set_policies"
	ExportValidate         = "validate"
	ExportIsAuthorized     = "is_authorized"
	ExportIsAuthorizedJSON = "is_authorized_json"
	ExportLastError        = "last_error"
)

// Module is the guest's single context: one arena, one engine state, and
// the message of the last failed setter.
type Module struct {
	arena   *arena.Arena
	state   *engine.State
	lastErr string
}

// New creates a Module whose buffers come from backing.
func New(backing arena.Backing) *Module {
	a := arena.New(backing)
	a.Subscribe(arena.ObserverFunc(logArenaEvent))
	return &Module{
		arena: a,
		state: engine.New(),
	}
}

func logArenaEvent(e arena.Event) {
	Logger().Debug("arena",
		zap.Stringer("event", e.Type),
		zap.Uint32("addr", uint32(e.Addr)),
		zap.Uint32("size", e.Size),
		zap.Int("live", e.Live))
}

// Arena returns the module's arena.
func (m *Module) Arena() *arena.Arena {
	return m.arena
}

// State returns the module's engine state.
func (m *Module) State() *engine.State {
	return m.state
}

// fatal aborts the current export. It never returns.
func fatal(export string, err error) {
	var e *errors.Error
	if errors.As(err, &e) {
		c := *e
		if c.Export == "" {
			c.Export = export
		}
		e = &c
	} else {
		e = errors.Wrap(errors.PhaseRuntime, errors.KindInvalidInput, err, "export failed")
		e.Export = export
	}
	Logger().Error("fatal export error", zap.String("export", export), zap.Error(e))
	panic(e)
}

func (m *Module) decode(export string, addr, length uint32) string {
	text, err := codec.Decode(m.arena, addr, length)
	if err != nil {
		fatal(export, err)
	}
	return text
}

func (m *Module) encode(export, text string) uint64 {
	addr, length, err := codec.Encode(m.arena, m.arena, text)
	if err != nil {
		fatal(export, err)
	}
	return codec.Pack(addr, length)
}

// Allocate reserves size bytes and returns their address.
func (m *Module) Allocate(size uint32) uint32 {
	addr, err := m.arena.Allocate(size)
	if err != nil {
		fatal(ExportAllocate, err)
	}
	return uint32(addr)
}

// Deallocate releases a buffer returned by Allocate or by a query export.
// An unknown address or a wrong size is fatal.
func (m *Module) Deallocate(addr, size uint32) {
	if err := m.arena.Deallocate(arena.Addr(addr), size); err != nil {
		fatal(ExportDeallocate, err)
	}
}

// SetEntities replaces the entity graph. Failures are recorded, not fatal.
func (m *Module) SetEntities(ptr, length uint32) {
	m.set(ExportSetEntities, ptr, length, m.state.SetEntities)
}

// SetPolicies replaces the policy set. Failures are recorded, not fatal.
func (m *Module) SetPolicies(ptr, length uint32) {
	m.set(ExportSetPolicies, ptr, length, m.state.SetPolicies)
}

func (m *Module) set(export string, ptr, length uint32, apply func(string) error) {
	text, err := codec.Decode(m.arena, ptr, length)
	if err == nil {
		err = apply(text)
	}
	if err != nil {
		Logger().Error("setter failed", zap.String("export", export), zap.Error(err))
		m.lastErr = err.Error()
		return
	}
	m.lastErr = ""
}

// LastError returns the packed message of the most recent setter failure,
// or an empty buffer when the last setter succeeded.
func (m *Module) LastError() uint64 {
	return m.encode(ExportLastError, m.lastErr)
}

// Validate checks the policy set against a schema and returns the packed
// JSON report.
func (m *Module) Validate(schemaPtr, schemaLen, modePtr, modeLen uint32) uint64 {
	schema := m.decode(ExportValidate, schemaPtr, schemaLen)
	mode := m.decode(ExportValidate, modePtr, modeLen)

	result, err := m.state.Validate(schema, mode)
	if err != nil {
		fatal(ExportValidate, err)
	}
	return m.encode(ExportValidate, marshal(ExportValidate, result))
}

// IsAuthorized evaluates a request and returns packed "Allow" or "Deny".
func (m *Module) IsAuthorized(pPtr, pLen, aPtr, aLen, rPtr, rLen, cPtr, cLen uint32) uint64 {
	req := m.request(ExportIsAuthorized, pPtr, pLen, aPtr, aLen, rPtr, rLen, cPtr, cLen)
	decision, err := m.state.IsAuthorized(req)
	if err != nil {
		fatal(ExportIsAuthorized, err)
	}
	return m.encode(ExportIsAuthorized, decision)
}

// IsAuthorizedJSON evaluates a request and returns the packed JSON
// decision record.
func (m *Module) IsAuthorizedJSON(pPtr, pLen, aPtr, aLen, rPtr, rLen, cPtr, cLen uint32) uint64 {
	req := m.request(ExportIsAuthorizedJSON, pPtr, pLen, aPtr, aLen, rPtr, rLen, cPtr, cLen)
	resp, err := m.state.IsAuthorizedJSON(req)
	if err != nil {
		fatal(ExportIsAuthorizedJSON, err)
	}
	return m.encode(ExportIsAuthorizedJSON, marshal(ExportIsAuthorizedJSON, resp))
}

func (m *Module) request(export string, pPtr, pLen, aPtr, aLen, rPtr, rLen, cPtr, cLen uint32) engine.Request {
	return engine.Request{
		Principal: m.decode(export, pPtr, pLen),
		Action:    m.decode(export, aPtr, aLen),
		Resource:  m.decode(export, rPtr, rLen),
		Context:   m.decode(export, cPtr, cLen),
	}
}

func marshal(export string, v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		fatal(export, errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "marshal result"))
	}
	return string(data)
}
