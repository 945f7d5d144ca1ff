package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/keychord/pkg/config"
)

// FilesystemRepository implements Repository using one YAML document per
// profile in a directory.
type FilesystemRepository struct {
	baseDir string
}

// NewFilesystemRepository creates a repository rooted at baseDir, creating
// the directory if needed.
func NewFilesystemRepository(baseDir string) (*FilesystemRepository, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}
	return &FilesystemRepository{baseDir: baseDir}, nil
}

// Close is a no-op.
func (r *FilesystemRepository) Close() error { return nil }

// Save writes data to <profile>.yaml atomically.
func (r *FilesystemRepository) Save(ctx context.Context, profile string, data config.Data) error {
	if err := checkProfile(profile); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := config.MarshalYAML(data)
	if err != nil {
		return fmt.Errorf("failed to marshal profile to YAML: %w", err)
	}

	filePath := r.profilePath(profile)
	tempPath := filePath + ".tmp"

	if err := os.WriteFile(tempPath, encoded, 0644); err != nil {
		return fmt.Errorf("failed to write profile file: %w", err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to save profile file: %w", err)
	}
	return nil
}

// Load parses <profile>.yaml.
func (r *FilesystemRepository) Load(ctx context.Context, profile string) (config.Data, error) {
	if err := checkProfile(profile); err != nil {
		return config.Data{}, err
	}
	if err := ctx.Err(); err != nil {
		return config.Data{}, err
	}

	data, err := config.ParseFile(r.profilePath(profile))
	if errors.Is(err, fs.ErrNotExist) {
		return config.Data{}, fmt.Errorf("%w: %s", ErrProfileNotFound, profile)
	}
	if err != nil {
		return config.Data{}, err
	}
	return data, nil
}

// List returns every readable profile ordered by name. Unparseable files
// are skipped.
func (r *FilesystemRepository) List(ctx context.Context) ([]Profile, error) {
	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile directory: %w", err)
	}

	profiles := make([]Profile, 0)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".yaml")

		data, err := r.Load(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		profiles = append(profiles, Profile{
			Name:      name,
			Commands:  len(data.Commands),
			KeyMaps:   len(data.KeyMaps),
			UpdatedAt: info.ModTime().UTC(),
		})
	}

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles, nil
}

// Delete removes <profile>.yaml.
func (r *FilesystemRepository) Delete(ctx context.Context, profile string) error {
	if err := checkProfile(profile); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(r.profilePath(profile))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, profile)
	}
	if err != nil {
		return fmt.Errorf("failed to delete profile file: %w", err)
	}
	return nil
}

func (r *FilesystemRepository) profilePath(profile string) string {
	return filepath.Join(r.baseDir, profile+".yaml")
}

