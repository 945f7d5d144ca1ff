package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/keychord/pkg/condition"
	"github.com/dshills/keychord/pkg/config"
	"github.com/dshills/keychord/pkg/domain/types"
	"github.com/dshills/keychord/pkg/engine"
	"github.com/dshills/keychord/pkg/environment"
	"github.com/dshills/keychord/pkg/keymap"
	"github.com/dshills/keychord/pkg/storage"
	"gopkg.in/yaml.v3"
)

var (
	// errNoSource is returned when no configuration source flag is set.
	errNoSource = errors.New("no configuration source: use --config, --db or --redis")
	// errNoStore is returned when a command needs a profile store and none is set.
	errNoStore = errors.New("no profile store: use --db or --redis")
)

type (
	stringTree = engine.Tree[types.Mode, types.Key, types.Action]
	stringEnv  = environment.Static[types.Mode, types.Action]
)

// loadData reads the raw configuration from --config, falling back to the
// stored profile in --redis or --db.
func loadData(ctx context.Context, opts *Options) (config.Data, error) {
	if opts.ConfigPath != "" {
		return newLoader(opts).Load(ctx)
	}

	repo, err := openStore(ctx, opts)
	if errors.Is(err, errNoStore) {
		return config.Data{}, errNoSource
	}
	if err != nil {
		return config.Data{}, err
	}
	defer func() { _ = repo.Close() }()
	return repo.Load(ctx, opts.Profile)
}

func newLoader(opts *Options) *config.Loader {
	return config.NewLoader(opts.ConfigPath, config.WithLogger(opts.Logger()))
}

// openStore opens the profile store named by --redis, or else --db.
func openStore(ctx context.Context, opts *Options) (storage.Repository, error) {
	switch {
	case strings.Contains(opts.RedisAddr, "://"):
		return storage.NewRedisRepositoryFromURL(opts.RedisAddr)
	case opts.RedisAddr != "":
		return storage.NewRedisRepository(opts.RedisAddr, "", 0), nil
	case opts.DBPath != "":
		return storage.NewSQLiteRepositoryWithPath(ctx, opts.DBPath)
	default:
		return nil, errNoStore
	}
}

// newEnvironment builds the environment described by --mode, --var and --actions.
func newEnvironment(opts *Options) (*stringEnv, error) {
	mode, err := types.ParseMode(opts.Mode)
	if err != nil {
		return nil, fmt.Errorf("invalid --mode: %w", err)
	}

	vars, err := parseVars(opts.Vars)
	if err != nil {
		return nil, err
	}

	env := environment.New[types.Mode, types.Action](mode)
	if len(opts.Actions) == 0 {
		env.AllowAll(true)
	}
	for _, raw := range opts.Actions {
		a, err := types.ParseAction(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid --actions entry: %w", err)
		}
		env.AddActions(a)
	}
	for name, value := range vars {
		env.Set(name, value)
	}
	return env, nil
}

// parseVars parses name=value pairs. Values are decoded as YAML scalars so
// "readonly=true" yields a bool and "count=3" an int.
func parseVars(pairs []string) (condition.Variables, error) {
	vars := make(condition.Variables, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q: expected name=value", pair)
		}

		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("invalid --var %q: %w", pair, err)
		}
		vars[name] = value
	}
	return vars, nil
}

// engineOptions maps the global flags to engine options.
func engineOptions(opts *Options, extra ...engine.Option) []engine.Option {
	out := []engine.Option{engine.WithLogger(opts.Logger())}
	if opts.Replace {
		out = append(out, engine.WithDuplicatePolicy(keymap.Replace))
	}
	if opts.Commit {
		out = append(out, engine.WithPrefixPolicy(engine.PrefixCommit))
	}
	return append(out, extra...)
}

// buildTree loads the configuration and builds the evaluation tree.
func buildTree(ctx context.Context, opts *Options, extra ...engine.Option) (*stringTree, *stringEnv, config.Data, error) {
	data, err := loadData(ctx, opts)
	if err != nil {
		return nil, nil, config.Data{}, err
	}

	env, err := newEnvironment(opts)
	if err != nil {
		return nil, nil, config.Data{}, err
	}

	tree, err := engine.Build(data, engine.StringCodec(), env, engineOptions(opts, extra...)...)
	if err != nil {
		return nil, nil, data, err
	}
	return tree, env, data, nil
}

// splitKeys flattens arguments such as "g g" into individual keys.
func splitKeys(args []string) []types.Key {
	var keys []types.Key
	for _, arg := range args {
		for _, f := range strings.Fields(arg) {
			keys = append(keys, types.Key(f))
		}
	}
	return keys
}

func joinActions(actions []types.Action) string {
	return strings.Join(types.Strings(actions), ", ")
}
