package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := &Error{Kind: KindUnknownKeyAtPosition, Sequence: []string{"g"}, Key: "x"}

	assert.True(t, stderrors.Is(err, ErrUnknownKeyAtPosition))
	assert.False(t, stderrors.Is(err, ErrIncompleteSequence))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, stderrors.Is(wrapped, ErrUnknownKeyAtPosition))
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "unknown key",
			err:  &Error{Kind: KindUnknownKeyAtPosition, Op: "evaluate", Mode: "Normal", Sequence: []string{"g"}, Key: "x"},
			want: `evaluate: key "x" does not exist after [g] (mode=Normal)`,
		},
		{
			name: "invalid combination",
			err:  &Error{Kind: KindInvalidKeyCombination, Op: "feed", Sequence: []string{"a", "z"}},
			want: "feed: invalid key combination [a z]",
		},
		{
			name: "no actions",
			err:  &Error{Kind: KindNoActionsProduced, Command: "save"},
			want: "no actions produced for command: save",
		},
		{
			name: "with cause",
			err:  &Error{Kind: KindConditionEvaluationFailed, Command: "c", Cause: stderrors.New("boom")},
			want: "condition of command c failed to evaluate: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := stderrors.New("expression failed")
	err := &Error{Kind: KindConditionEvaluationFailed, Cause: cause}

	assert.True(t, stderrors.Is(err, cause))
	assert.Nil(t, (*Error)(nil).Unwrap())
}

func TestDuplicateBindingNamesBothCommands(t *testing.T) {
	err := &Error{Kind: KindDuplicateBinding, Sequence: []string{"g", "g"}, Command: "top_again", Detail: "top", Mode: "Normal"}
	assert.Equal(t, "sequence [g g] bound to top, also to top_again (mode=Normal)", err.Error())
}

func TestWithModeCopies(t *testing.T) {
	original := &Error{Kind: KindModeNotBound}
	annotated := WithMode(original, "Insert")

	var e *Error
	require.True(t, stderrors.As(annotated, &e))
	assert.Equal(t, "Insert", e.Mode)
	assert.Empty(t, original.Mode)

	plain := stderrors.New("plain")
	assert.Same(t, plain, WithMode(plain, "Insert"))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindCommandNotFound, KindOf(fmt.Errorf("x: %w", &Error{Kind: KindCommandNotFound})))
	assert.Equal(t, Kind(""), KindOf(stderrors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestValidationErrorAggregates(t *testing.T) {
	v := &ValidationError{}
	assert.NoError(t, v.Err())

	v.Add(&Error{Kind: KindUnknownActionReference, Command: "a", Detail: "nope"})
	v.Add(nil)
	v.Merge(&ValidationError{Findings: []*Error{
		{Kind: KindUnknownCommandReference, Command: "b", Detail: "command a"},
		{Kind: KindUnknownActionReference, Command: "c", Detail: "other"},
	}})
	v.Merge(stderrors.New("loose error"))

	err := v.Err()
	require.Error(t, err)
	assert.Equal(t, 4, v.Len())
	assert.Equal(t, 2, v.Count(KindUnknownActionReference))
	assert.True(t, stderrors.Is(err, ErrUnknownCommandReference))
	assert.True(t, stderrors.Is(err, ErrUnknownActionReference))
	assert.False(t, stderrors.Is(err, ErrDuplicateBinding))
	assert.Contains(t, err.Error(), "4 finding(s)")
	assert.Contains(t, err.Error(), "action not found: nope")
}
