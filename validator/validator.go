package validator

import (
	"strings"

	"github.com/cedar-policy/cedar-go/x/exp/ast"
	"github.com/cedar-policy/cedar-go/x/exp/schema/validate"
)

// PolicySource is one policy to validate together with the byte span of its
// text in the policy document.
type PolicySource struct {
	Policy *ast.Policy
	ID     string
	Start  int
	End    int
}

// Note is one validation finding, located by the byte span of its policy.
type Note struct {
	PolicyID   string
	Message    string
	RangeStart int
	RangeEnd   int
}

// Validator checks policies against one schema in one mode.
type Validator struct {
	checker *validate.Validator
}

// New creates a validator. An unrecognised mode fails with ErrInvalidMode.
func New(schema *Schema, mode Mode) (*Validator, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	opt := validate.WithStrict()
	if mode == ModePermissive {
		opt = validate.WithPermissive()
	}
	return &Validator{checker: validate.New(schema.resolved, opt)}, nil
}

// Validate returns the notes for every policy, in policy order. The result
// is empty, never nil, when every policy is valid.
func (v *Validator) Validate(policies []PolicySource) []Note {
	notes := make([]Note, 0)
	for _, src := range policies {
		// An empty ID keeps the checker from prefixing messages with it;
		// the note carries the ID separately.
		err := v.checker.Policy("", src.Policy)
		if err == nil {
			continue
		}
		seen := make(map[string]bool)
		for _, e := range flatten(err) {
			msg := strings.TrimSpace(e.Error())
			if msg == "" || seen[msg] {
				continue
			}
			seen[msg] = true
			notes = append(notes, Note{
				PolicyID:   src.ID,
				Message:    msg,
				RangeStart: src.Start,
				RangeEnd:   src.End,
			})
		}
	}
	return notes
}

func flatten(err error) []error {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	var out []error
	for _, e := range joined.Unwrap() {
		out = append(out, flatten(e)...)
	}
	return out
}

// Validate is a convenience wrapper for New followed by Validate.
func Validate(schema *Schema, mode Mode, policies []PolicySource) ([]Note, error) {
	v, err := New(schema, mode)
	if err != nil {
		return nil, err
	}
	return v.Validate(policies), nil
}
