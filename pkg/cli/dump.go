package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dshills/keychord/pkg/config"
	"github.com/dshills/keychord/pkg/domain/types"
	"github.com/spf13/cobra"
)

// NewDumpCommand creates the dump command.
func NewDumpCommand(opts *Options) *cobra.Command {
	var (
		format string
		graph  bool
	)

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "List every binding of a configuration",
		Long: `List the (mode, keys, command) triples derived from the built key tries.

With --format yaml the merged raw configuration is printed instead, which is
useful to flatten a configuration directory into a single file. With --graph
the command reference graph is printed.

Examples:
  keychord dump -c ./keys
  keychord dump -c ./keys --format yaml > merged.yaml
  keychord dump -c ./keys --graph`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, _, data, err := buildTree(cmd.Context(), opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if graph {
				g := tree.Commands().Graph()
				for _, name := range tree.Commands().Names() {
					refs := types.Strings(g[name])
					if len(refs) == 0 {
						_, _ = fmt.Fprintln(out, name)
						continue
					}
					_, _ = fmt.Fprintf(out, "%s -> %s\n", name, strings.Join(refs, ", "))
				}
				return nil
			}

			switch format {
			case "table":
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "MODE\tKEYS\tCOMMAND")
				_, _ = fmt.Fprintln(w, "────\t────\t───────")
				for _, b := range tree.Bindings() {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", b.Mode, strings.Join(types.Strings(b.Keys), " "), b.Command)
				}
				return w.Flush()
			case "yaml":
				encoded, err := config.MarshalYAML(data)
				if err != nil {
					return err
				}
				_, err = out.Write(encoded)
				return err
			default:
				return fmt.Errorf("unknown format %q (expected table or yaml)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table or yaml")
	cmd.Flags().BoolVar(&graph, "graph", false, "Print the command reference graph")
	return cmd
}
