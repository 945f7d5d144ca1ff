package cli

import (
	"fmt"
	"path/filepath"

	"github.com/dshills/keychord/pkg/storage"
	"github.com/spf13/cobra"
)

// NewExportCommand creates the export command.
func NewExportCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Write a configuration to <dir>/<profile>.yaml",
		Long: `Write the merged configuration, from --config or the stored profile in --db,
as a single YAML document named after --profile in <dir>.

Examples:
  keychord export ./out --db keychord.db --profile work
  keychord export ./out -c ./keys --profile merged`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := loadData(ctx, opts)
			if err != nil {
				return err
			}

			repo, err := storage.NewFilesystemRepository(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			if err := repo.Save(ctx, opts.Profile, data); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported profile %q to %s\n",
				opts.Profile, filepath.Join(args[0], opts.Profile+".yaml"))
			return nil
		},
	}
	return cmd
}
