package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/cedar-policy/cedar-go"
	"github.com/cedar-policy/cedar-go/types"
	"go.uber.org/zap"

	"github.com/wippyai/cedar-wasm/errors"
)

// policySource is the file name reported in policy parse errors.
const policySource = "policies.cedar"

type policyEntry struct {
	policy *cedar.Policy
	id     cedar.PolicyID
	start  int
	end    int
}

// State is the authorization state of one guest: an entity graph and a
// policy set, each replaced wholesale by its setter.
type State struct {
	entities types.EntityMap
	set      *cedar.PolicySet
	policies []policyEntry
}

// New creates a State with no entities and no policies.
func New() *State {
	return &State{
		entities: types.EntityMap{},
		set:      cedar.NewPolicySet(),
	}
}

// SetEntities replaces the entity graph with the entities in a Cedar JSON
// entity array. Each uid may appear once. On failure the previous graph is
// kept.
func (s *State) SetEntities(text string) error {
	entities, err := decodeEntities(text)
	if err != nil {
		perr := errors.ParseFailed(errors.PhaseEntities, "entities", err)
		Logger().Error("set entities failed, keeping previous entities",
			zap.Int("kept", len(s.entities)),
			zap.Error(perr))
		return perr
	}
	s.entities = entities
	Logger().Debug("entities replaced", zap.Int("count", len(entities)))
	return nil
}

func decodeEntities(text string) (types.EntityMap, error) {
	var list []types.Entity
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		return nil, err
	}
	if list == nil {
		return nil, fmt.Errorf("entities must be a JSON array, got %s", strings.TrimSpace(text))
	}
	entities := make(types.EntityMap, len(list))
	for _, e := range list {
		if _, dup := entities[e.UID]; dup {
			return nil, fmt.Errorf("duplicate entity %s", e.UID)
		}
		entities[e.UID] = e
	}
	return entities, nil
}

// SetPolicies replaces the policy set with the policies in Cedar policy
// text. Policies are named policy0..policyN-1 in source order. On failure
// the previous set is kept.
func (s *State) SetPolicies(text string) error {
	list, err := cedar.NewPolicyListFromBytes(policySource, []byte(text))
	if err != nil {
		perr := errors.ParseFailed(errors.PhasePolicies, "policies", err)
		Logger().Error("set policies failed, keeping previous policies",
			zap.Int("kept", len(s.policies)),
			zap.Error(perr))
		return perr
	}

	set := cedar.NewPolicySet()
	entries := make([]policyEntry, 0, len(list))
	for i, p := range list {
		id := cedar.PolicyID(fmt.Sprintf("policy%d", i))
		set.Add(id, p)
		entries = append(entries, policyEntry{policy: p, id: id})
	}
	spans(text, entries)

	s.set = set
	s.policies = entries
	Logger().Debug("policies replaced", zap.Int("count", len(entries)))
	return nil
}

// spans assigns each policy the byte range from its own start to the start
// of the next policy, with trailing whitespace trimmed.
func spans(text string, entries []policyEntry) {
	for i := range entries {
		start := clamp(entries[i].policy.Position().Offset, len(text))
		end := len(text)
		if i+1 < len(entries) {
			end = clamp(entries[i+1].policy.Position().Offset, len(text))
		}
		if end < start {
			end = start
		}
		end = start + len(strings.TrimRightFunc(text[start:end], unicode.IsSpace))
		entries[i].start = start
		entries[i].end = end
	}
}

func clamp(v, limit int) int {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}

// PolicyCount returns the number of policies in the current set.
func (s *State) PolicyCount() int {
	return len(s.policies)
}

// PolicyIDs returns the ids of the current policies in source order.
func (s *State) PolicyIDs() []string {
	ids := make([]string, len(s.policies))
	for i, p := range s.policies {
		ids[i] = string(p.id)
	}
	return ids
}

// EntityCount returns the number of entities in the current graph.
func (s *State) EntityCount() int {
	return len(s.entities)
}
