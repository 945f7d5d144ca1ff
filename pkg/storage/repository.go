// Package storage persists raw key map configuration as named profiles.
// Only configuration records are stored; engine state is never persisted.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/keychord/pkg/config"
	"github.com/dshills/keychord/pkg/validation"
)

// DefaultProfile is the profile used when none is named.
const DefaultProfile = "default"

var (
	// ErrProfileNotFound is returned when a profile does not exist.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrEmptyProfile is returned when a profile name is empty.
	ErrEmptyProfile = errors.New("profile name cannot be empty")
)

// Profile summarizes a stored configuration.
type Profile struct {
	Name      string
	Commands  int
	KeyMaps   int
	UpdatedAt time.Time
}

// Repository stores configuration records under profile names.
type Repository interface {
	Save(ctx context.Context, profile string, data config.Data) error
	Load(ctx context.Context, profile string) (config.Data, error)
	List(ctx context.Context) ([]Profile, error)
	Delete(ctx context.Context, profile string) error
	Close() error
}

var (
	_ Repository = (*SQLiteRepository)(nil)
	_ Repository = (*FilesystemRepository)(nil)
	_ Repository = (*RedisRepository)(nil)
)

func checkProfile(profile string) error {
	if profile == "" {
		return ErrEmptyProfile
	}
	if err := validation.ValidateIdentifier(profile); err != nil {
		return fmt.Errorf("profile %q: %w", profile, err)
	}
	return nil
}
