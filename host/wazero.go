package host

import (
	"context"
	"fmt"
	"io"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	cedarwasm "github.com/wippyai/cedar-wasm"
	"github.com/wippyai/cedar-wasm/boundary"
	"github.com/wippyai/cedar-wasm/errors"
)

// wazeroRuntime holds a runtime and the compiled guest shared by every
// instance created from it.
type wazeroRuntime struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	cfg      Config
}

func newWazeroRuntime(ctx context.Context, wasm []byte, cfg Config) (*wazeroRuntime, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, errors.Load("instantiate WASI", err)
	}

	compiled, err := r.CompileModule(ctx, wasm)
	if err != nil {
		_ = r.Close(ctx)
		return nil, errors.Load("compile guest module", err)
	}

	exported := compiled.ExportedFunctions()
	for _, name := range boundary.ExportNames() {
		if _, ok := exported[name]; !ok {
			_ = r.Close(ctx)
			return nil, errors.Load(fmt.Sprintf("guest does not export %q", name), nil)
		}
	}

	return &wazeroRuntime{runtime: r, compiled: compiled, cfg: cfg}, nil
}

func (w *wazeroRuntime) instantiate(ctx context.Context) (Guest, error) {
	stderr := w.cfg.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	modConfig := wazero.NewModuleConfig().
		WithName(w.cfg.ModuleName).
		WithStderr(stderr).
		WithSysWalltime().
		WithSysNanotime().
		WithStartFunctions("_initialize")

	mod, err := w.runtime.InstantiateModule(ctx, w.compiled, modConfig)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	g := &wazeroGuest{
		module: mod,
		funcs:  make(map[string]api.Function),
	}
	if mem := mod.Memory(); mem != nil {
		g.memory = &wazeroMemory{mem: mem}
	} else {
		_ = mod.Close(ctx)
		return nil, errors.NotInitialized(errors.PhaseLoad, "guest memory")
	}
	for _, name := range boundary.ExportNames() {
		g.funcs[name] = mod.ExportedFunction(name)
	}
	return g, nil
}

func (w *wazeroRuntime) close(ctx context.Context) error {
	return w.runtime.Close(ctx)
}

// wazeroGuest is a guest instance running on wazero.
type wazeroGuest struct {
	module api.Module
	memory *wazeroMemory
	funcs  map[string]api.Function
}

func (g *wazeroGuest) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	if g.module.IsClosed() {
		return nil, errors.Closed(errors.PhaseRuntime)
	}
	fn := g.funcs[name]
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "export", name)
	}
	res, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.Trap(name, err)
	}
	return res, nil
}

func (g *wazeroGuest) Memory() cedarwasm.Memory {
	return g.memory
}

func (g *wazeroGuest) Close(ctx context.Context) error {
	return g.module.Close(ctx)
}

// wazeroMemory wraps wazero's api.Memory.
type wazeroMemory struct {
	mem api.Memory
}

func (m *wazeroMemory) Read(offset, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseDecode, offset, length)
	}
	return data, nil
}

func (m *wazeroMemory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseEncode, offset, uint32(len(data)))
	}
	return nil
}

var _ cedarwasm.Memory = (*wazeroMemory)(nil)
