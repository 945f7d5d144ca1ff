package cli

import (
	"errors"
	"fmt"

	"github.com/dshills/keychord/pkg/engine"
	"github.com/spf13/cobra"
)

// NewImportCommand creates the import command.
func NewImportCommand(opts *Options) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Store a configuration as a profile",
		Long: `Load the configuration named by --config, validate it, and store the merged
records under --profile in the SQLite database named by --db, or on the Redis
server named by --redis. An existing profile with the same name is replaced.

Examples:
  keychord import -c ./keys --db ~/.keychord/keychord.db
  keychord import -c work.toml --db keychord.db --profile work
  keychord import -c ./keys --redis localhost:6379 --profile shared
  keychord import -c ./broken --db keychord.db --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.ConfigPath == "" {
				return errors.New("import requires --config")
			}

			ctx := cmd.Context()
			repo, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			data, err := newLoader(opts).Load(ctx)
			if err != nil {
				return err
			}

			if !force {
				env, err := newEnvironment(opts)
				if err != nil {
					return err
				}
				if _, err := engine.Build(data, engine.StringCodec(), env, engineOptions(opts)...); err != nil {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "✗ Configuration invalid (use --force to store it anyway)")
					return err
				}
			}

			if err := repo.Save(ctx, opts.Profile, data); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d commands and %d key maps into profile %q\n",
				len(data.Commands), len(data.KeyMaps), opts.Profile)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Store the configuration even if it does not validate")
	return cmd
}
