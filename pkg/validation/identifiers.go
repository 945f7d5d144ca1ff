// Package validation checks user-provided identifiers such as profile names
// before they reach a database row or a file name.
package validation

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// MaxIdentifierLength is the longest accepted identifier, in characters.
const MaxIdentifierLength = 64

// ErrInvalidIdentifier is returned for identifiers that break the naming rules.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// IsValidIdentifierChar checks if a character is valid for identifiers
// (alphanumeric, hyphen, or underscore).
func IsValidIdentifierChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' || ch == '_'
}

// ValidateIdentifier reports whether s is usable as an identifier. Valid
// identifiers:
//   - Start with a letter or digit
//   - Contain only letters, digits, hyphens, and underscores
//   - Are between 1 and MaxIdentifierLength characters
func ValidateIdentifier(s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	}
	if n := utf8.RuneCountInString(s); n > MaxIdentifierLength {
		return fmt.Errorf("%w: %d characters exceeds %d", ErrInvalidIdentifier, n, MaxIdentifierLength)
	}
	for i, ch := range s {
		if !IsValidIdentifierChar(ch) {
			return fmt.Errorf("%w: character %q at position %d", ErrInvalidIdentifier, ch, i)
		}
		if i == 0 && (ch == '-' || ch == '_') {
			return fmt.Errorf("%w: must start with a letter or digit", ErrInvalidIdentifier)
		}
	}
	return nil
}
