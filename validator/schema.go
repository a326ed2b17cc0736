package validator

import (
	"bytes"
	"encoding/json"

	"github.com/cedar-policy/cedar-go/types"
	"github.com/cedar-policy/cedar-go/x/exp/schema"
	"github.com/cedar-policy/cedar-go/x/exp/schema/resolved"
	"github.com/tidwall/jsonc"

	"github.com/wippyai/cedar-wasm/errors"
)

// Schema is a parsed, fully resolved Cedar schema.
type Schema struct {
	resolved *resolved.Schema
}

// ParseSchema parses a Cedar schema. JSON text (with comments and trailing
// commas allowed) may be namespaced or flat; anything not starting with '{'
// is read as the human-readable schema format.
func ParseSchema(text []byte) (*Schema, error) {
	var s schema.Schema

	trimmed := bytes.TrimSpace(text)
	if len(trimmed) > 0 && trimmed[0] != '{' {
		if err := s.UnmarshalCedar(trimmed); err != nil {
			return nil, errors.ParseFailed(errors.PhaseSchema, "schema", err)
		}
		return resolve(&s)
	}

	raw, err := namespaced(jsonc.ToJSON(trimmed))
	if err != nil {
		return nil, errors.ParseFailed(errors.PhaseSchema, "schema", err)
	}
	if err := s.UnmarshalJSON(raw); err != nil {
		return nil, errors.ParseFailed(errors.PhaseSchema, "schema", err)
	}
	return resolve(&s)
}

func resolve(s *schema.Schema) (*Schema, error) {
	r, err := s.Resolve()
	if err != nil {
		return nil, errors.New(errors.PhaseSchema, errors.KindInvalidInput).
			Detail("resolve schema").
			Cause(err).
			Build()
	}
	return &Schema{resolved: r}, nil
}

// namespaced wraps a flat schema document in the empty namespace.
func namespaced(raw []byte) ([]byte, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, err
	}
	for _, key := range []string{"entityTypes", "actions", "commonTypes"} {
		if _, ok := top[key]; ok {
			return json.Marshal(map[string]json.RawMessage{"": raw})
		}
	}
	return raw, nil
}

// HasEntityType reports whether the schema declares the qualified entity
// type name.
func (s *Schema) HasEntityType(name string) bool {
	_, ok := s.resolved.Entities[types.EntityType(name)]
	if !ok {
		_, ok = s.resolved.Enums[types.EntityType(name)]
	}
	return ok
}

// HasAction reports whether the schema declares the action entity.
func (s *Schema) HasAction(uid types.EntityUID) bool {
	_, ok := s.resolved.Actions[uid]
	return ok
}

// ParentTypes returns the declared memberOfTypes of an entity type.
func (s *Schema) ParentTypes(name string) []string {
	e, ok := s.resolved.Entities[types.EntityType(name)]
	if !ok {
		return nil
	}
	out := make([]string, len(e.ParentTypes))
	for i, p := range e.ParentTypes {
		out[i] = string(p)
	}
	return out
}
