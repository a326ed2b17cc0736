// Package host drives a cedar guest module from Go.
//
// An Engine owns one guest instance and speaks its export table: it copies
// request text into guest buffers, calls the export, reads the packed
// result back and frees every buffer it touched before returning.
//
//	eng, err := host.New(ctx, wasmBytes, nil)
//	if err != nil {
//		return err
//	}
//	defer eng.Close(ctx)
//
//	if err := eng.SetPolicies(ctx, `permit(principal, action, resource);`); err != nil {
//		return err
//	}
//	ok, err := eng.IsAuthorized(ctx, host.EvalRequest{
//		Principal: `User::"alice"`,
//		Action:    `Action::"view"`,
//		Resource:  `Photo::"x"`,
//		Context:   `{}`,
//	})
//
// The guest runs on wazero. InProcess returns a guest backed by the same
// boundary code compiled into the host, which is useful when no compiled
// module is at hand.
//
// # Traps
//
// Malformed query input makes the guest trap. The Engine reports the trap as
// an ErrTrap error, instantiates a fresh guest and replays the last entities
// and policies it set successfully, so the next call sees the same state.
//
// # Thread Safety
//
// An Engine is safe for concurrent use; calls into the guest are
// serialised by a mutex.
package host
