// Package cedarwasm runs a Cedar authorization engine inside a WebAssembly
// guest and drives it from a Go host.
//
// The guest and host share no garbage collector and no object references;
// everything crosses the boundary as (address, length) pairs into the
// guest's linear memory.
//
// # Architecture Overview
//
//	cedarwasm/           Root package with the Memory and Allocator interfaces
//	├── arena/           Address-keyed buffer table behind allocate/deallocate
//	├── codec/           Text <-> (address, length) and the packed u64 return
//	├── engine/          Entity graph and policy set, validate and authorize
//	├── validator/       Schema parsing and static policy validation
//	├── boundary/        Guest export table over arena + engine
//	├── host/            wazero-backed client for a compiled guest
//	├── errors/          Structured error types
//	└── cmd/
//	    ├── cedar-guest/ The wasip1 reactor exporting the ABI
//	    └── cedarctl/    Scenario runner, watch mode and interactive TUI
//
// # Quick Start
//
// Build the guest:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o cedar.wasm ./cmd/cedar-guest
//
// Drive it from Go:
//
//	eng, err := host.New(ctx, wasmBytes, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	_ = eng.SetEntitiesFromJSON(ctx, "[]")
//	_ = eng.SetPolicies(ctx, `permit(principal, action, resource);`)
//	ok, err := eng.IsAuthorized(ctx, host.EvalRequest{
//	    Principal: `User::"alice"`,
//	    Action:    `Action::"view"`,
//	    Resource:  `Photo::"x"`,
//	    Context:   "{}",
//	})
//
// # Ownership
//
// Every buffer obtained from allocate, and every buffer returned by a query
// export, belongs to the host until it calls deallocate. The guest never
// reclaims a buffer on its own. The host package frees everything it
// allocates or receives before a call returns.
//
// # Thread Safety
//
// The guest is single-threaded and holds no locks. host.Engine serialises
// calls into its instance and is safe for concurrent use.
package cedarwasm
