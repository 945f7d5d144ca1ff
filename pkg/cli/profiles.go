package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewProfilesCommand creates the profiles command and its subcommands.
func NewProfilesCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List stored profiles",
		Long: `List the profiles stored in the SQLite database named by --db, or on the
Redis server named by --redis.

Examples:
  keychord profiles --db keychord.db
  keychord profiles --redis localhost:6379
  keychord profiles delete work --db keychord.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			profiles, err := repo.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(profiles) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No profiles stored")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tCOMMANDS\tKEY MAPS\tUPDATED")
			_, _ = fmt.Fprintln(w, "────\t────────\t────────\t───────")
			for _, p := range profiles {
				_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", p.Name, p.Commands, p.KeyMaps, p.UpdatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			if err := repo.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted profile %q\n", args[0])
			return nil
		},
	})

	return cmd
}
