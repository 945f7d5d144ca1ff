package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dshills/keychord/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderPrefixesSubdirectories(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "root.yaml", `
commands:
  - name: quit
    steps: [app.quit]
key_maps:
  - keys: [q]
    command: quit
  - keys: [g, s]
    command: git_status
`)
	testutil.WriteFile(t, dir, "git/status.json", `{
  "commands": [{"name": "status", "steps": ["git.status"]}]
}`)
	testutil.WriteFile(t, dir, "git/remote/push.toml", `
[[commands]]
name = "push"
steps = ["git.push"]
`)
	testutil.WriteFile(t, dir, "notes.txt", "ignored")

	data, err := NewLoader(dir, WithConcurrency(2)).Load(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(data.Commands))
	for _, c := range data.Commands {
		names = append(names, c.Name)
	}
	// Lexical path order: git/remote/push.toml, git/status.json, root.yaml.
	assert.Equal(t, []string{"git_remote_push", "git_status", "quit"}, names)

	require.Len(t, data.KeyMaps, 2)
	assert.Equal(t, "git_status", data.KeyMaps[1].Command)
}

func TestLoaderSingleFile(t *testing.T) {
	path := filepath.Join(testutil.SampleDir(t), "keys.yaml")

	data, err := NewLoader(path).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, data.Commands, 7)
}

func TestLoaderReportsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "ok.yaml", "commands: []\n")
	testutil.WriteFile(t, dir, "sub/bad.yaml", "commands: [\n")

	_, err := NewLoader(dir).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestLoaderMissingRoot(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "missing")).Load(context.Background())
	assert.Error(t, err)
}

func TestLoaderCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(testutil.SampleDir(t)).LoadDir(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDataHelpers(t *testing.T) {
	d := Data{Commands: []Command{{Name: "a"}}, KeyMaps: []KeyMap{{Command: "a"}}}
	d.Merge(Data{Commands: []Command{{Name: "b"}}})
	d.PrefixCommands("x")
	d.ApplyDefaults()

	assert.Equal(t, "x_a", d.Commands[0].Name)
	assert.Equal(t, "x_b", d.Commands[1].Name)
	assert.Equal(t, "a", d.KeyMaps[0].Command)
	assert.Equal(t, Mixed, d.Commands[0].Type)
	assert.Equal(t, "true", d.Commands[1].When)
	assert.Equal(t, []string{"Normal"}, d.KeyMaps[0].Modes)
	assert.Equal(t, map[string]bool{"x_a": true, "x_b": true}, d.CommandNames())
}
