// Package cli implements the keychord command line.
package cli

import (
	"log/slog"
	"os"

	"github.com/dshills/keychord/internal/logging"
	"github.com/dshills/keychord/pkg/domain/types"
	"github.com/dshills/keychord/pkg/storage"
	"github.com/spf13/cobra"
)

const (
	// Version is the current version of keychord
	Version = "1.0.0"

	// ConfigEnv names the environment variable holding the default --config value.
	ConfigEnv = "KEYCHORD_CONFIG"
	// DBEnv names the environment variable holding the default --db value.
	DBEnv = "KEYCHORD_DB"
	// RedisEnv names the environment variable holding the default --redis value.
	RedisEnv = "KEYCHORD_REDIS"
)

// Options holds the global flags shared by every subcommand.
type Options struct {
	ConfigPath string
	DBPath     string
	RedisAddr  string
	Profile    string
	Mode       string
	Vars       []string
	Actions    []string
	Replace    bool
	Commit     bool
	Debug      bool

	logger *slog.Logger
}

// Logger returns the logger configured for the running command.
func (o *Options) Logger() *slog.Logger {
	if o.logger == nil {
		return logging.NewNop()
	}
	return o.logger
}

// NewRootCommand creates the root cobra command for keychord.
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "keychord",
		Short: "keychord - modal key sequence resolution",
		Long: `keychord resolves key sequences such as "g g" into ordered action lists
following a modal key map configuration. Commands may reference other
commands and are gated by "when" conditions evaluated against variables.

Configuration is read from a YAML, TOML or JSON file, a directory of such
files, or a profile stored in a SQLite database or on a Redis server.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.ConfigPath == "" {
				opts.ConfigPath = os.Getenv(ConfigEnv)
			}
			if opts.DBPath == "" {
				opts.DBPath = os.Getenv(DBEnv)
			}
			if opts.RedisAddr == "" {
				opts.RedisAddr = os.Getenv(RedisEnv)
			}

			level := slog.LevelWarn
			if opts.Debug {
				level = slog.LevelDebug
			}
			opts.logger = logging.NewWithWriter(cmd.ErrOrStderr(), level)
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file or directory (default: $"+ConfigEnv+")")
	flags.StringVar(&opts.DBPath, "db", "", "SQLite database holding stored profiles (default: $"+DBEnv+")")
	flags.StringVar(&opts.RedisAddr, "redis", "", "Redis server holding stored profiles, host:port or redis:// URL (default: $"+RedisEnv+")")
	flags.StringVar(&opts.Profile, "profile", storage.DefaultProfile, "Stored profile name")
	flags.StringVarP(&opts.Mode, "mode", "m", types.DefaultMode.String(), "Active mode")
	flags.StringArrayVar(&opts.Vars, "var", nil, "Condition variable as name=value (value parsed as YAML, repeatable)")
	flags.StringSliceVar(&opts.Actions, "actions", nil, "Recognized actions (default: accept any action)")
	flags.BoolVar(&opts.Replace, "replace", false, "Let later key maps replace earlier bindings of the same sequence")
	flags.BoolVar(&opts.Commit, "commit", false, "Resolve bound prefixes immediately during key-by-key input")
	flags.BoolVar(&opts.Debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewEvalCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewReplCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewProfilesCommand(opts))
	cmd.AddCommand(NewInitCommand())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}
