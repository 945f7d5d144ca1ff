// Package testutil provides shared fixtures for keychord tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SampleYAML is a small configuration exercising every command type, a
// conditional group and a prefix binding ("g" alongside "g g").
const SampleYAML = `commands:
  - name: top
    type: FunctionSequence
    steps: [cursor.top]
  - name: goto
    type: FunctionSequence
    steps: [cursor.goto]
  - name: save
    type: FunctionSequence
    steps: [file.write, status.saved]
  - name: save_readonly
    type: FunctionSequence
    steps: [status.readonly]
    when: "readonly"
  - name: save_writable
    type: Mixed
    steps: [save]
    when: "!readonly"
  - name: smart_save
    type: CommandGroup
    steps: [save_readonly, save_writable]
  - name: insert
    steps: [mode.insert]
key_maps:
  - keys: [g, g]
    command: top
  - keys: g
    command: goto
  - keys: [C-s]
    command: smart_save
    modes: [Normal, Insert]
  - keys: [i]
    command: insert
`

// WriteFile writes content to dir/rel, creating parent directories, and
// returns the full path.
func WriteFile(t testing.TB, dir, rel, content string) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
	return path
}

// SampleDir writes SampleYAML into a fresh temporary directory and returns it.
func SampleDir(t testing.TB) string {
	t.Helper()

	dir := t.TempDir()
	WriteFile(t, dir, "keys.yaml", SampleYAML)
	return dir
}

// SampleActions lists every action referenced by SampleYAML.
func SampleActions() []string {
	return []string{
		"cursor.top",
		"cursor.goto",
		"file.write",
		"status.saved",
		"status.readonly",
		"mode.insert",
	}
}
