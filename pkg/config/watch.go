package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits after the last change before reloading.
const DefaultDebounce = 100 * time.Millisecond

// ReloadFunc receives the result of every reload triggered by Watch.
type ReloadFunc func(Data, error)

// Watch reloads the configuration whenever a supported file under the root
// changes, calling onReload with the result. Bursts of events within the
// debounce interval produce one reload. Watch blocks until ctx is done.
func (l *Loader) Watch(ctx context.Context, debounce time.Duration, onReload ReloadFunc) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	root, err := filepath.Abs(l.root)
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to stat config root: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	// A single file is watched through its directory; editors replace files on save.
	single := !info.IsDir()
	if single {
		err = w.Add(filepath.Dir(root))
	} else {
		err = addTree(w, root)
	}
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	l.logger.Debug("watching configuration", "root", root)

	relevant := func(ev fsnotify.Event) bool {
		if ev.Op == fsnotify.Chmod {
			return false
		}
		if single {
			return filepath.Clean(ev.Name) == root
		}
		if _, err := FormatOf(ev.Name); err == nil {
			return true
		}
		// Directory changes may add or remove whole files.
		fi, err := os.Stat(ev.Name)
		return err != nil || fi.IsDir()
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			if !single && ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = addTree(w, ev.Name)
				}
			}
			l.logger.Debug("configuration changed", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("configuration watcher error", "error", err)

		case <-fire:
			fire = nil
			data, err := l.Load(ctx)
			if err != nil {
				l.logger.Warn("configuration reload failed", "error", err)
			} else {
				l.logger.Debug("configuration reloaded",
					"commands", len(data.Commands),
					"key_maps", len(data.KeyMaps))
			}
			onReload(data, err)
		}
	}
}

// addTree watches dir and every directory below it.
func addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
