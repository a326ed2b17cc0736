package host

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/cedar-wasm/boundary"
	"github.com/wippyai/cedar-wasm/codec"
	"github.com/wippyai/cedar-wasm/engine"
	"github.com/wippyai/cedar-wasm/errors"
)

// EvalRequest is an authorization request. Principal, Action and Resource
// use the Cedar form Type::"id"; Context is a JSON record.
type EvalRequest struct {
	Principal string
	Action    string
	Resource  string
	Context   string
}

// Response is the verbose authorization result returned by
// IsAuthorizedJSON.
type Response = engine.Response

// ValidationResult is the report returned by Validate.
type ValidationResult = engine.ValidationResult

// Engine drives one guest instance.
type Engine struct {
	factory  GuestFactory
	guest    Guest
	runtime  *wazeroRuntime
	entities *string
	policies *string
	cfg      Config
	mu       sync.Mutex
	closed   bool
	replay   bool
}

// New compiles wasm and instantiates it as a guest. cfg may be nil.
func New(ctx context.Context, wasm []byte, cfg *Config) (*Engine, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	rt, err := newWazeroRuntime(ctx, wasm, c)
	if err != nil {
		return nil, err
	}
	e, err := newEngine(ctx, rt.instantiate, c)
	if err != nil {
		_ = rt.close(ctx)
		return nil, err
	}
	e.runtime = rt
	return e, nil
}

// NewWithFactory creates an engine over guests produced by factory.
func NewWithFactory(ctx context.Context, factory GuestFactory, cfg *Config) (*Engine, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	return newEngine(ctx, factory, c)
}

func newEngine(ctx context.Context, factory GuestFactory, cfg Config) (*Engine, error) {
	guest, err := factory(ctx)
	if err != nil {
		return nil, err
	}
	return &Engine{factory: factory, guest: guest, cfg: cfg}, nil
}

// Close releases the guest and the runtime.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	var firstErr error
	if e.guest != nil {
		if err := e.guest.Close(ctx); err != nil {
			firstErr = err
		}
		e.guest = nil
	}
	if e.runtime != nil {
		if err := e.runtime.close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		e.runtime = nil
	}
	return firstErr
}

// SetEntitiesFromJSON replaces the guest's entity graph. A parse failure
// is returned and the previous graph stays in effect.
func (e *Engine) SetEntitiesFromJSON(ctx context.Context, entities string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.set(ctx, boundary.ExportSetEntities, errors.PhaseEntities, entities); err != nil {
		return err
	}
	e.entities = &entities
	return nil
}

// SetPolicies replaces the guest's policy set. A parse failure is returned
// and the previous set stays in effect.
func (e *Engine) SetPolicies(ctx context.Context, policies string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.set(ctx, boundary.ExportSetPolicies, errors.PhasePolicies, policies); err != nil {
		return err
	}
	e.policies = &policies
	return nil
}

// IsAuthorized reports whether the request is allowed.
func (e *Engine) IsAuthorized(ctx context.Context, req EvalRequest) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out, err := e.query(ctx, boundary.ExportIsAuthorized, req.Principal, req.Action, req.Resource, req.Context)
	if err != nil {
		return false, err
	}
	return out == engine.DecisionAllow, nil
}

// IsAuthorizedJSON evaluates the request and returns the decision with its
// contributing policies and evaluation errors.
func (e *Engine) IsAuthorizedJSON(ctx context.Context, req EvalRequest) (*Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out, err := e.query(ctx, boundary.ExportIsAuthorizedJSON, req.Principal, req.Action, req.Resource, req.Context)
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		return nil, errors.Wrap(errors.PhaseAuthorize, errors.KindInvalidData, err, "decode guest response")
	}
	return &resp, nil
}

// Validate checks the current policies against schema. mode is
// ValidationModeStrict or ValidationModePermissive.
func (e *Engine) Validate(ctx context.Context, schema, mode string) (*ValidationResult, error) {
	if mode != ValidationModeStrict && mode != ValidationModePermissive {
		return nil, errors.InvalidMode(mode)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	out, err := e.query(ctx, boundary.ExportValidate, schema, mode)
	if err != nil {
		return nil, err
	}
	var res ValidationResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		return nil, errors.Wrap(errors.PhaseValidate, errors.KindInvalidData, err, "decode guest report")
	}
	if res.Errors == nil {
		res.Errors = []engine.ValidationError{}
	}
	return &res, nil
}

// set runs a setter export and reads last_error to learn whether it took.
func (e *Engine) set(ctx context.Context, export string, phase errors.Phase, text string) error {
	if _, err := e.invoke(ctx, export, []string{text}, false); err != nil {
		return err
	}
	msg, err := e.invoke(ctx, boundary.ExportLastError, nil, true)
	if err != nil {
		return err
	}
	if msg != "" {
		return errors.New(phase, errors.KindInvalidInput).
			Export(export).
			Detail("%s", msg).
			Build()
	}
	return nil
}

func (e *Engine) query(ctx context.Context, export string, args ...string) (string, error) {
	return e.invoke(ctx, export, args, true)
}

// invoke copies args into guest buffers, calls export, and reads back the
// packed text result when hasResult is set. Every buffer is released
// before invoke returns. Callers hold e.mu.
func (e *Engine) invoke(ctx context.Context, export string, args []string, hasResult bool) (string, error) {
	if e.closed {
		return "", errors.Closed(errors.PhaseRuntime)
	}
	if e.guest == nil {
		if err := e.reinstantiate(ctx); err != nil {
			return "", err
		}
	}

	callID := uuid.NewString()
	start := time.Now()
	log := Logger().With(zap.String("call", callID), zap.String("export", export))

	guest := e.guest
	alloc := guestAllocator{ctx: ctx, guest: guest}
	mem := guest.Memory()

	type buffer struct{ addr, length uint32 }
	inputs := make([]buffer, 0, len(args))
	release := func() {
		for _, b := range inputs {
			if err := alloc.Free(b.addr, b.length); err != nil {
				log.Warn("release input buffer", zap.Uint32("addr", b.addr), zap.Error(err))
			}
		}
	}

	params := make([]uint64, 0, 2*len(args))
	for _, arg := range args {
		addr, length, err := codec.Encode(alloc, mem, arg)
		if err != nil {
			if !errors.Is(err, errors.ErrTrap) {
				release()
			}
			return "", e.fail(ctx, log, err)
		}
		inputs = append(inputs, buffer{addr, length})
		params = append(params, uint64(addr), uint64(length))
	}

	res, err := guest.Call(ctx, export, params...)
	if err != nil {
		if !errors.Is(err, errors.ErrTrap) {
			release()
		}
		return "", e.fail(ctx, log, err)
	}
	release()

	if !hasResult {
		log.Debug("guest call", zap.Duration("elapsed", time.Since(start)))
		return "", nil
	}
	if len(res) != 1 {
		return "", errors.New(errors.PhaseRuntime, errors.KindInvalidData).
			Export(export).
			Detail("expected 1 result, got %d", len(res)).
			Build()
	}

	addr, length := codec.Unpack(res[0])
	out, err := codec.Decode(mem, addr, length)
	if ferr := alloc.Free(addr, length); ferr != nil {
		log.Warn("release result buffer", zap.Uint32("addr", addr), zap.Error(ferr))
	}
	if err != nil {
		return "", err
	}

	log.Debug("guest call",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("result_bytes", len(out)))
	return out, nil
}

// fail logs err and, when the guest trapped, replaces it with a fresh
// instance carrying the same state.
func (e *Engine) fail(ctx context.Context, log *zap.Logger, err error) error {
	if !errors.Is(err, errors.ErrTrap) {
		log.Debug("guest call failed", zap.Error(err))
		return err
	}

	log.Warn("guest trapped", zap.Error(err))
	if e.guest != nil {
		_ = e.guest.Close(ctx)
		e.guest = nil
	}
	if e.cfg.NoRecover {
		e.closed = true
		return err
	}
	if e.replay {
		return err
	}
	if rerr := e.reinstantiate(ctx); rerr != nil {
		log.Error("re-instantiate guest after trap", zap.Error(rerr))
	}
	return err
}

// reinstantiate creates a new guest and replays the last accepted entities
// and policies.
func (e *Engine) reinstantiate(ctx context.Context) error {
	guest, err := e.factory(ctx)
	if err != nil {
		return err
	}
	e.guest = guest
	e.replay = true
	defer func() { e.replay = false }()

	if e.entities != nil {
		if err := e.set(ctx, boundary.ExportSetEntities, errors.PhaseEntities, *e.entities); err != nil {
			return err
		}
	}
	if e.policies != nil {
		if err := e.set(ctx, boundary.ExportSetPolicies, errors.PhasePolicies, *e.policies); err != nil {
			return err
		}
	}
	Logger().Info("guest re-instantiated",
		zap.Bool("entities", e.entities != nil),
		zap.Bool("policies", e.policies != nil))
	return nil
}
