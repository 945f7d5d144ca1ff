package config

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Loader reads configuration files from a root directory tree.
//
// Files in sub-directories have their command names prefixed with the
// relative directory path, separators replaced by "_": a command "open" in
// <root>/git/remote/cmds.yaml is registered as "git_remote_open". References
// (steps and key map commands) are never rewritten, so they must use the
// prefixed name.
type Loader struct {
	root        string
	logger      *slog.Logger
	concurrency int
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger used to report loaded files.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithConcurrency bounds the number of files parsed at once.
func WithConcurrency(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// NewLoader creates a loader rooted at root.
func NewLoader(root string, opts ...LoaderOption) *Loader {
	l := &Loader{
		root:        root,
		logger:      slog.New(slog.DiscardHandler),
		concurrency: 8,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type loadedFile struct {
	path string
	data Data
}

// Load loads root as a directory tree, or as a single file when root is a file.
func (l *Loader) Load(ctx context.Context) (Data, error) {
	info, err := os.Stat(l.root)
	if err != nil {
		return Data{}, fmt.Errorf("failed to stat config root: %w", err)
	}
	if !info.IsDir() {
		return ParseFile(l.root)
	}
	return l.LoadDir(ctx)
}

// LoadDir parses every supported file under the root concurrently and
// merges them in lexical path order.
func (l *Loader) LoadDir(ctx context.Context) (Data, error) {
	paths, err := l.discover()
	if err != nil {
		return Data{}, err
	}

	files := make([]loadedFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := ParseFile(path)
			if err != nil {
				return err
			}
			data.PrefixCommands(l.prefixFor(path))
			files[i] = loadedFile{path: path, data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Data{}, err
	}

	var merged Data
	for _, f := range files {
		l.logger.Debug("loaded key map file",
			"path", f.path,
			"commands", len(f.data.Commands),
			"key_maps", len(f.data.KeyMaps))
		merged.Merge(f.data)
	}
	return merged, nil
}

// discover returns every supported file under root, sorted.
func (l *Loader) discover() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ferr := FormatOf(path); ferr == nil {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk config directory: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// prefixFor returns the command name prefix derived from path's directory.
func (l *Loader) prefixFor(path string) string {
	rel, err := filepath.Rel(l.root, filepath.Dir(path))
	if err != nil || rel == "." {
		return ""
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", "_")
}
