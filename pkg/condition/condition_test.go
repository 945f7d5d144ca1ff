package condition

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingEvaluator counts calls so tests can prove short-circuiting.
type recordingEvaluator struct {
	calls  int
	result bool
	err    error
}

func (r *recordingEvaluator) EvaluateBool(expression string, vars Variables) (bool, error) {
	r.calls++
	return r.result, r.err
}

func TestNewDefaultsToAlways(t *testing.T) {
	assert.True(t, New("").IsAlways())
	assert.True(t, New("  ").IsAlways())
	assert.Equal(t, Always, New("").String())
	assert.Equal(t, Always, Condition{}.String())
	assert.True(t, Condition{}.IsAlways())
	assert.False(t, New("x > 1").IsAlways())
}

func TestTrueShortCircuits(t *testing.T) {
	eval := &recordingEvaluator{err: errors.New("must not be called")}

	ok, err := New("true").IsSatisfied(eval, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = New("false").IsSatisfied(eval, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 0, eval.calls)
}

func TestTrueWithoutEvaluator(t *testing.T) {
	ok, err := New("true").IsSatisfied(nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMissingEvaluator(t *testing.T) {
	_, err := New("insert").IsSatisfied(nil, Variables{"insert": true})
	assert.ErrorIs(t, err, ErrNoEvaluator)
}

func TestDelegatesToEvaluator(t *testing.T) {
	eval := &recordingEvaluator{result: true}
	ok, err := New("anything").IsSatisfied(eval, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, eval.calls)

	failing := &recordingEvaluator{err: errors.New("boom")}
	_, err = New("anything").IsSatisfied(failing, nil)
	assert.EqualError(t, err, "boom")
}

func TestExprEvaluator(t *testing.T) {
	eval := NewExprEvaluator()

	tests := []struct {
		name    string
		expr    string
		vars    Variables
		want    bool
		wantErr error
	}{
		{name: "int comparison", expr: "count > 3", vars: Variables{"count": 5}, want: true},
		{name: "string equality", expr: `mode == "visual"`, vars: Variables{"mode": "insert"}, want: false},
		{name: "bool variable", expr: "readonly", vars: Variables{"readonly": true}, want: true},
		{name: "negation and", expr: "!readonly && count == 2", vars: Variables{"readonly": false, "count": 2}, want: true},
		{name: "or", expr: "a || b", vars: Variables{"a": false, "b": true}, want: true},
		{name: "literal", expr: "1 < 2", vars: nil, want: true},
		{name: "undefined variable", expr: "missing > 1", vars: Variables{}, wantErr: ErrUndefinedVariable},
		{name: "builtin-named variable", expr: "count > 1", vars: Variables{"count": 2}, want: true},
		{name: "absent builtin-named variable", expr: "count > 1", vars: Variables{}, wantErr: ErrUndefinedVariable},
		{name: "absent builtin-named without vars", expr: "len == 0 || first", vars: nil, wantErr: ErrUndefinedVariable},
		{name: "builtin call", expr: "len(name) == 3", vars: Variables{"name": "abc"}, want: true},
		{name: "let binding", expr: "let n = count * 2; n > 3", vars: Variables{"count": 2}, want: true},
		{name: "member access", expr: "buffer.dirty", vars: Variables{"buffer": map[string]any{"dirty": true}}, want: true},
		{name: "syntax error", expr: "count >", vars: Variables{"count": 1}, wantErr: ErrInvalidExpression},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.EvaluateBool(tt.expr, tt.vars)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExprEvaluatorRejectsNonBoolean(t *testing.T) {
	_, err := NewExprEvaluator().EvaluateBool("count + 1", Variables{"count": 1})
	assert.Error(t, err)
}

func TestExprEvaluatorCache(t *testing.T) {
	eval := NewExprEvaluator()

	_, err := eval.EvaluateBool("n > 1", Variables{"n": 2})
	require.NoError(t, err)
	_, err = eval.EvaluateBool("n > 1", Variables{"n": 7})
	require.NoError(t, err)
	assert.Equal(t, 1, eval.CacheSize())

	ok, err := eval.EvaluateBool("n > 1", Variables{"n": 2.5})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, eval.CacheSize())
}

func TestExprEvaluatorNamesEveryMissingVariable(t *testing.T) {
	_, err := NewExprEvaluator().EvaluateBool("count > 1 && (readonly || count < 9) && missing", Variables{"readonly": true})
	require.ErrorIs(t, err, ErrUndefinedVariable)
	assert.EqualError(t, err, "undefined variable: count, missing")
}

func TestConditionCheck(t *testing.T) {
	eval := NewExprEvaluator()

	assert.NoError(t, New("true").Check(eval))
	assert.NoError(t, New("count > 1 && insert").Check(eval))
	assert.NoError(t, New("len > 0 || keys == values").Check(eval))
	assert.ErrorIs(t, New("count > && ").Check(eval), ErrInvalidExpression)
	assert.NoError(t, New("((").Check(nil))
}
