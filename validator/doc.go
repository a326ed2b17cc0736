// Package validator checks a Cedar policy set against a Cedar schema.
//
// Schemas use the Cedar JSON schema format, either namespaced
// ({"PhotoFlash": {"entityTypes": ..., "actions": ...}}) or flat
// ({"entityTypes": ..., "actions": ...}), with comments and trailing commas
// accepted. The human-readable schema format is accepted as well.
//
// Each policy is checked against every request environment its scope
// admits. ModeStrict additionally requires operands of ==, the branches of
// if-then-else and the elements of a set literal to share a type.
// ModePermissive tolerates those mismatches.
//
// Notes carry the byte span of the whole policy, not of the offending
// expression.
package validator
