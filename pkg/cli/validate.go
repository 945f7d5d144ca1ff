package cli

import (
	"errors"
	"fmt"

	kcerrors "github.com/dshills/keychord/pkg/errors"
	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a key map configuration",
		Long: `Build the key map engine from the configuration and report every problem.

This checks:
- Document structure against the configuration schema
- Unknown actions (when --actions is given) and unknown command references
- Duplicate command names and duplicate key bindings
- Command reference cycles
- Syntax of every "when" condition

Examples:
  keychord validate --config ./keys
  keychord validate --db ~/.keychord/keychord.db --profile work
  keychord validate -c keys.yaml --actions cursor.top,file.write`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, _, data, err := buildTree(cmd.Context(), opts)
			if err != nil {
				var verr *kcerrors.ValidationError
				if !errors.As(err, &verr) {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "✗ Failed to load configuration")
					return err
				}
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "✗ Configuration invalid: %d finding(s)\n", verr.Len())
				for _, f := range verr.Findings {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "  - %v\n", f)
				}
				return fmt.Errorf("validation failed with %d finding(s)", verr.Len())
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "✓ Configuration loaded (%d commands, %d key maps)\n", len(data.Commands), len(data.KeyMaps))
			_, _ = fmt.Fprintln(out, "✓ All references resolve, no cycles")
			_, _ = fmt.Fprintf(out, "✓ %d bindings across %d mode(s)\n", len(tree.Bindings()), len(tree.Modes()))
			return nil
		},
	}
	return cmd
}
