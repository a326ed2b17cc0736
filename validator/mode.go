package validator

import "github.com/wippyai/cedar-wasm/errors"

// Mode selects how strictly types must agree.
type Mode string

const (
	ModeStrict     Mode = "Strict"
	ModePermissive Mode = "Permissive"
)

// ParseMode accepts exactly "Strict" or "Permissive".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStrict, ModePermissive:
		return Mode(s), nil
	default:
		return "", errors.InvalidMode(s)
	}
}
