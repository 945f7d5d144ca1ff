package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dshills/keychord/pkg/domain/types"
	"github.com/spf13/cobra"
)

// NewEvalCommand creates the eval command.
func NewEvalCommand(opts *Options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "eval <keys>...",
		Short: "Resolve a complete key sequence",
		Long: `Resolve a complete key sequence in the active mode and print its actions,
one per line. Keys may be given as separate arguments or as one quoted,
space separated argument.

Examples:
  keychord eval -c keys.yaml g g
  keychord eval -c keys.yaml "C-s" --var readonly=true
  keychord eval -c keys.yaml --mode Insert C-s --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, env, _, err := buildTree(cmd.Context(), opts)
			if err != nil {
				return err
			}

			actions, err := tree.Evaluate(env, splitKeys(args))
			if err != nil {
				return err
			}

			if asJSON {
				output, err := json.MarshalIndent(types.Strings(actions), "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal JSON: %w", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return nil
			}

			for _, a := range actions {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), a)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the actions as a JSON array")
	return cmd
}
