// Package types defines the token capability set and the string-backed
// mode, key and action types used by keychord.
package types

import (
	"errors"
	"fmt"
)

// Token is the capability set required of modes, keys and actions.
// Values must be comparable (equality and a stable map hash) and printable
// for diagnostics.
type Token interface {
	comparable
	fmt.Stringer
}

// Parser constructs a token from its configuration string.
type Parser[T any] func(string) (T, error)

// ErrEmptyToken is returned when a token is parsed from an empty string.
var ErrEmptyToken = errors.New("token cannot be empty")

// Mode identifies an input context such as "Normal" or "Insert".
type Mode string

// DefaultMode is the mode key maps bind to when none is configured.
const DefaultMode Mode = "Normal"

// String returns the string representation of a Mode.
func (m Mode) String() string {
	return string(m)
}

// ParseMode builds a Mode from a configuration string.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return "", fmt.Errorf("mode: %w", ErrEmptyToken)
	}
	return Mode(s), nil
}

// Key is one atomic input token, e.g. a keystroke.
type Key string

// String returns the string representation of a Key.
func (k Key) String() string {
	return string(k)
}

// ParseKey builds a Key from a configuration string.
func ParseKey(s string) (Key, error) {
	if s == "" {
		return "", fmt.Errorf("key: %w", ErrEmptyToken)
	}
	return Key(s), nil
}

// Keys converts configuration strings to a key sequence.
func Keys(raw ...string) []Key {
	keys := make([]Key, 0, len(raw))
	for _, s := range raw {
		keys = append(keys, Key(s))
	}
	return keys
}

// Action identifies something the host application executes.
type Action string

// String returns the string representation of an Action.
func (a Action) String() string {
	return string(a)
}

// ParseAction builds an Action from a configuration string.
func ParseAction(s string) (Action, error) {
	if s == "" {
		return "", fmt.Errorf("action: %w", ErrEmptyToken)
	}
	return Action(s), nil
}

// CommandName identifies a command in the single flat command namespace.
type CommandName string

// String returns the string representation of a CommandName.
func (n CommandName) String() string {
	return string(n)
}

// IsZero returns true if the CommandName is the zero value.
func (n CommandName) IsZero() bool {
	return n == ""
}

// Strings renders a token slice for diagnostics.
func Strings[T fmt.Stringer](tokens []T) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.String()
	}
	return out
}
