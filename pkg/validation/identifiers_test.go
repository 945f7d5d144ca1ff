package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidIdentifierChar(t *testing.T) {
	for _, ch := range "azAZ09-_" {
		assert.True(t, IsValidIdentifierChar(ch), "%q", ch)
	}
	for _, ch := range " ./\\:*?@#$%&()[]{}<>|`~\n\té" {
		assert.False(t, IsValidIdentifierChar(ch), "%q", ch)
	}
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"simple", "default", ""},
		{"hyphen", "my-profile", ""},
		{"underscore", "work_v2", ""},
		{"leading digit", "2024", ""},
		{"max length", strings.Repeat("a", MaxIdentifierLength), ""},
		{"empty", "", "empty"},
		{"too long", strings.Repeat("a", MaxIdentifierLength+1), "exceeds"},
		{"leading hyphen", "-work", "must start"},
		{"leading underscore", "_work", "must start"},
		{"traversal", "../escape", "character '.'"},
		{"separator", "a/b", "character '/'"},
		{"space", "my profile", "character ' '"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidIdentifier)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
