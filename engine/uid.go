package engine

import (
	"strconv"
	"strings"

	"github.com/cedar-policy/cedar-go/types"

	"github.com/wippyai/cedar-wasm/errors"
)

// ParseEntityUID parses the Cedar text form of an entity reference,
// Namespace::Type::"id". Surrounding whitespace is ignored.
func ParseEntityUID(text string) (types.EntityUID, error) {
	s := strings.TrimSpace(text)

	sep := strings.Index(s, `::"`)
	if sep < 0 {
		return types.EntityUID{}, uidError(text, "missing ::\"id\" suffix")
	}
	// UnmarshalCedar leaves the type name unchecked.
	if typ := s[:sep]; !validTypeName(typ) {
		return types.EntityUID{}, uidError(text, "invalid entity type "+strconv.Quote(typ))
	}

	var uid types.EntityUID
	if err := uid.UnmarshalCedar([]byte(s)); err != nil {
		return types.EntityUID{}, uidError(text, err.Error())
	}
	return uid, nil
}

func uidError(text, detail string) error {
	return errors.New(errors.PhaseAuthorize, errors.KindInvalidInput).
		Value(text).
		Detail("entity reference %q: %s", text, detail).
		Build()
}

func validTypeName(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, "::") {
		if !validIdent(part) {
			return false
		}
	}
	return true
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
