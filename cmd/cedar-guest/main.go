//go:build wasip1

// Command cedar-guest is the WebAssembly guest. Build it as a reactor:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o cedar.wasm ./cmd/cedar-guest
//
// The host instantiates the module, runs _initialize, and then calls the
// exports below. Logs are JSON lines on stderr.
package main

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/cedar-wasm/arena"
	"github.com/wippyai/cedar-wasm/boundary"
	"github.com/wippyai/cedar-wasm/engine"
)

var module *boundary.Module

func init() {
	level := zapcore.InfoLevel
	if os.Getenv("CEDAR_GUEST_DEBUG") != "" {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.Lock(os.Stderr),
		level,
	)
	log := zap.New(core).Named("cedar-guest")
	boundary.SetLogger(log.Named("boundary"))
	engine.SetLogger(log.Named("engine"))

	module = boundary.New(arena.NewLinearBacking())
}

func main() {}

//go:wasmexport allocate
func allocate(size uint32) uint32 {
	return module.Allocate(size)
}

//go:wasmexport deallocate
func deallocate(addr, size uint32) {
	module.Deallocate(addr, size)
}

//go:wasmexport set_entities
func setEntities(ptr, length uint32) {
	module.SetEntities(ptr, length)
}

//go:wasmexport set_policies
func setPolicies(ptr, length uint32) {
	module.SetPolicies(ptr, length)
}

//go:wasmexport validate
func validate(schemaPtr, schemaLen, modePtr, modeLen uint32) uint64 {
	return module.Validate(schemaPtr, schemaLen, modePtr, modeLen)
}

//go:wasmexport is_authorized
func isAuthorized(pPtr, pLen, aPtr, aLen, rPtr, rLen, cPtr, cLen uint32) uint64 {
	return module.IsAuthorized(pPtr, pLen, aPtr, aLen, rPtr, rLen, cPtr, cLen)
}

//go:wasmexport is_authorized_json
func isAuthorizedJSON(pPtr, pLen, aPtr, aLen, rPtr, rLen, cPtr, cLen uint32) uint64 {
	return module.IsAuthorizedJSON(pPtr, pLen, aPtr, aLen, rPtr, rLen, cPtr, cLen)
}

//go:wasmexport last_error
func lastError() uint64 {
	return module.LastError()
}
