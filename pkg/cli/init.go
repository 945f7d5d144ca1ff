package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// starterConfig is the configuration written by init.
const starterConfig = `# keychord configuration
#
# Commands expand into ordered action lists. Steps of a Mixed command name
# another command when one exists and an action otherwise. A command whose
# "when" condition is false expands to nothing.
commands:
  - name: top
    type: FunctionSequence
    steps: [cursor.top]
  - name: bottom
    type: FunctionSequence
    steps: [cursor.bottom]
  - name: write
    type: FunctionSequence
    steps: [file.write, status.saved]
  - name: refuse_write
    type: FunctionSequence
    steps: [status.readonly]
    when: "readonly"
  - name: allow_write
    steps: [write]
    when: "!readonly"
  - name: save
    type: CommandGroup
    steps: [refuse_write, allow_write]
  - name: insert
    steps: [mode.insert]
  - name: escape
    steps: [mode.normal]

# Key maps bind key sequences to commands, per mode (default: Normal).
key_maps:
  - keys: [g, g]
    command: top
  - keys: [G]
    command: bottom
  - keys: [C-s]
    command: save
    modes: [Normal, Insert]
  - keys: [i]
    command: insert
  - keys: [Esc]
    command: escape
    modes: [Insert]
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a starter configuration",
		Long: `Write a starter keys.yaml into dir (default: the current directory).

Examples:
  keychord init
  keychord init ./keys
  keychord init ./keys --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

			path := filepath.Join(dir, "keys.yaml")
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("configuration already exists: %s (use --force to overwrite)", path)
			}

			if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
				return fmt.Errorf("failed to write configuration: %w", err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "✓ Created %s\n", path)
			_, _ = fmt.Fprintln(out, "\nNext steps:")
			_, _ = fmt.Fprintf(out, "  keychord validate -c %s\n", dir)
			_, _ = fmt.Fprintf(out, "  keychord eval -c %s g g\n", dir)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing keys.yaml")
	return cmd
}
