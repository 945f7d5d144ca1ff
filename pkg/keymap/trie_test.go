package keymap

import (
	"testing"

	"github.com/dshills/keychord/pkg/domain/types"
	kcerrors "github.com/dshills/keychord/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(raw ...string) []types.Key { return types.Keys(raw...) }

func TestInsertAndLookup(t *testing.T) {
	trie := New[types.Key]()
	require.NoError(t, trie.Insert(keys("g", "g"), "top", Reject))
	require.NoError(t, trie.Insert(keys("g"), "goto", Reject))
	require.NoError(t, trie.Insert(keys("d", "w"), "delete_word", Reject))

	tests := []struct {
		name    string
		seq     []types.Key
		want    types.CommandName
		wantErr error
	}{
		{name: "chord", seq: keys("g", "g"), want: "top"},
		{name: "prefix binding", seq: keys("g"), want: "goto"},
		{name: "two keys", seq: keys("d", "w"), want: "delete_word"},
		{name: "incomplete", seq: keys("d"), wantErr: kcerrors.ErrIncompleteSequence},
		{name: "empty input", seq: nil, wantErr: kcerrors.ErrIncompleteSequence},
		{name: "unknown first key", seq: keys("x"), wantErr: kcerrors.ErrUnknownKeyAtPosition},
		{name: "unknown later key", seq: keys("g", "x"), wantErr: kcerrors.ErrUnknownKeyAtPosition},
		{name: "too long", seq: keys("g", "g", "g"), wantErr: kcerrors.ErrUnknownKeyAtPosition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := trie.Lookup(tt.seq)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookupReportsConsumedPrefix(t *testing.T) {
	trie := New[types.Key]()
	require.NoError(t, trie.Insert(keys("a", "b", "c"), "abc", Reject))

	_, err := trie.Lookup(keys("a", "b", "x", "y"))
	var kerr *kcerrors.Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, []string{"a", "b"}, kerr.Sequence)
	assert.Equal(t, "x", kerr.Key)
	assert.Equal(t, `key "x" does not exist after [a b]`, kerr.Error())
}

func TestInsertDuplicatePolicy(t *testing.T) {
	trie := New[types.Key]()
	require.NoError(t, trie.Insert(keys("q"), "quit", Reject))

	err := trie.Insert(keys("q"), "quit_all", Reject)
	require.ErrorIs(t, err, kcerrors.ErrDuplicateBinding)
	assert.Contains(t, err.Error(), "sequence [q] bound to quit, also to quit_all")

	name, err := trie.Lookup(keys("q"))
	require.NoError(t, err)
	assert.Equal(t, types.CommandName("quit"), name)

	require.NoError(t, trie.Insert(keys("q"), "quit_all", Replace))
	name, err = trie.Lookup(keys("q"))
	require.NoError(t, err)
	assert.Equal(t, types.CommandName("quit_all"), name)
	assert.Equal(t, 1, trie.Len())
}

func TestInsertRejectsEmptySequence(t *testing.T) {
	err := New[types.Key]().Insert(nil, "nothing", Reject)
	assert.ErrorIs(t, err, kcerrors.ErrEmptySequence)
}

func TestNodeAccessors(t *testing.T) {
	trie := New[types.Key]()
	require.NoError(t, trie.Insert(keys("g", "g"), "top", Reject))
	require.NoError(t, trie.Insert(keys("g"), "goto", Reject))

	g, ok := trie.Root().Child("g")
	require.True(t, ok)
	assert.True(t, g.HasChildren())
	name, bound := g.Command()
	assert.True(t, bound)
	assert.Equal(t, types.CommandName("goto"), name)

	gg, ok := g.Child("g")
	require.True(t, ok)
	assert.False(t, gg.HasChildren())

	_, ok = trie.Root().Child("z")
	assert.False(t, ok)
	_, bound = trie.Root().Command()
	assert.False(t, bound)
}

func TestWalkIsOrdered(t *testing.T) {
	trie := New[types.Key]()
	require.NoError(t, trie.Insert(keys("z"), "zed", Reject))
	require.NoError(t, trie.Insert(keys("a", "c"), "ac", Reject))
	require.NoError(t, trie.Insert(keys("a", "b"), "ab", Reject))
	require.NoError(t, trie.Insert(keys("a"), "a", Reject))

	var got [][]string
	var names []types.CommandName
	trie.Walk(func(seq []types.Key, name types.CommandName) {
		got = append(got, types.Strings(seq))
		names = append(names, name)
	})

	assert.Equal(t, [][]string{{"a"}, {"a", "b"}, {"a", "c"}, {"z"}}, got)
	assert.Equal(t, []types.CommandName{"a", "ab", "ac", "zed"}, names)
}

func TestCloneIsIndependent(t *testing.T) {
	trie := New[types.Key]()
	require.NoError(t, trie.Insert(keys("g", "g"), "top", Reject))

	clone := trie.Clone()
	require.NoError(t, clone.Insert(keys("g", "e"), "end", Reject))

	_, err := trie.Lookup(keys("g", "e"))
	assert.ErrorIs(t, err, kcerrors.ErrUnknownKeyAtPosition)
	assert.Equal(t, 1, trie.Len())
	assert.Equal(t, 2, clone.Len())
}
