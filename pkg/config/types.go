// Package config loads raw key map configuration into Data records.
//
// A configuration document holds two lists:
//
//	commands:
//	  - name: save
//	    type: FunctionSequence     # FunctionSequence | CommandGroup | Mixed (default)
//	    steps: [file.write, status.update]
//	    when: "!readonly"          # optional, defaults to "true"
//	key_maps:
//	  - keys: "C-s"                # a list, or a space separated string
//	    command: save
//	    modes: [Normal, Insert]    # optional, defaults to [Normal]
//
// The same shape is accepted as YAML, TOML and JSON. Documents are checked
// against an embedded JSON Schema before decoding.
package config

import (
	"fmt"
	"strings"

	"github.com/dshills/keychord/pkg/condition"
	"github.com/dshills/keychord/pkg/domain/types"
)

// CommandType controls how a command's step strings are classified.
type CommandType string

const (
	// Mixed steps name a command when one exists, an action otherwise.
	Mixed CommandType = "Mixed"
	// FunctionSequence steps are all actions.
	FunctionSequence CommandType = "FunctionSequence"
	// CommandGroup steps all reference other commands.
	CommandGroup CommandType = "CommandGroup"
)

// UnmarshalText implements encoding.TextUnmarshaler. Matching is case-insensitive.
func (t *CommandType) UnmarshalText(text []byte) error {
	parsed, err := ParseCommandType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (t CommandType) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

// ParseCommandType parses a command type name. Empty means Mixed.
func ParseCommandType(s string) (CommandType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mixed":
		return Mixed, nil
	case "functionsequence", "function_sequence":
		return FunctionSequence, nil
	case "commandgroup", "command_group":
		return CommandGroup, nil
	default:
		return "", fmt.Errorf("unknown command type %q", s)
	}
}

// Command is a raw command record.
type Command struct {
	Name  string      `mapstructure:"name" yaml:"name" toml:"name"`
	Type  CommandType `mapstructure:"type" yaml:"type,omitempty" toml:"type,omitempty"`
	Steps []string    `mapstructure:"steps" yaml:"steps" toml:"steps"`
	When  string      `mapstructure:"when" yaml:"when,omitempty" toml:"when,omitempty"`
}

// KeyMap is a raw key map record.
type KeyMap struct {
	Keys    []string `mapstructure:"keys" yaml:"keys" toml:"keys"`
	Command string   `mapstructure:"command" yaml:"command" toml:"command"`
	Modes   []string `mapstructure:"modes" yaml:"modes,omitempty" toml:"modes,omitempty"`
}

// Data is the merged raw configuration consumed by the engine.
type Data struct {
	Commands []Command `mapstructure:"commands" yaml:"commands" toml:"commands"`
	KeyMaps  []KeyMap  `mapstructure:"key_maps" yaml:"key_maps" toml:"key_maps"`
}

// ApplyDefaults fills unset fields with their defaults.
func (d *Data) ApplyDefaults() {
	for i := range d.Commands {
		c := &d.Commands[i]
		if c.Type == "" {
			c.Type = Mixed
		}
		if strings.TrimSpace(c.When) == "" {
			c.When = condition.Always
		}
	}
	for i := range d.KeyMaps {
		km := &d.KeyMaps[i]
		if len(km.Modes) == 0 {
			km.Modes = []string{types.DefaultMode.String()}
		}
	}
}

// Merge appends other's records to d, preserving order.
func (d *Data) Merge(other Data) {
	d.Commands = append(d.Commands, other.Commands...)
	d.KeyMaps = append(d.KeyMaps, other.KeyMaps...)
}

// PrefixCommands prefixes every command name with prefix and "_".
// Step and key map references are left untouched.
func (d *Data) PrefixCommands(prefix string) {
	if prefix == "" {
		return
	}
	for i := range d.Commands {
		d.Commands[i].Name = prefix + "_" + d.Commands[i].Name
	}
}

// CommandNames returns the set of command names in d.
func (d *Data) CommandNames() map[string]bool {
	names := make(map[string]bool, len(d.Commands))
	for _, c := range d.Commands {
		names[c.Name] = true
	}
	return names
}
