package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dshills/keychord/internal/testutil"
	"github.com/dshills/keychord/pkg/config"
	"github.com/dshills/keychord/pkg/validation"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repositories(t *testing.T) map[string]Repository {
	t.Helper()
	ctx := context.Background()

	sqlRepo, err := NewSQLiteRepositoryWithPath(ctx, filepath.Join(t.TempDir(), "nested", "keychord.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlRepo.Close() })

	fsRepo, err := NewFilesystemRepository(filepath.Join(t.TempDir(), "profiles"))
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	redisRepo := NewRedisRepositoryFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = redisRepo.Close() })

	return map[string]Repository{"sqlite": sqlRepo, "filesystem": fsRepo, "redis": redisRepo}
}

func sample(t *testing.T) config.Data {
	t.Helper()
	data, err := config.ParseYAML([]byte(testutil.SampleYAML))
	require.NoError(t, err)
	return data
}

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			data := sample(t)
			require.NoError(t, repo.Save(ctx, DefaultProfile, data))

			loaded, err := repo.Load(ctx, DefaultProfile)
			require.NoError(t, err)
			assert.Equal(t, data, loaded)
		})
	}
}

func TestRepositorySaveReplaces(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.Save(ctx, "work", sample(t)))

			smaller := config.Data{
				Commands: []config.Command{{Name: "quit", Type: config.FunctionSequence, Steps: []string{"app.quit"}, When: "true"}},
				KeyMaps:  []config.KeyMap{{Keys: []string{"q"}, Command: "quit", Modes: []string{"Normal"}}},
			}
			require.NoError(t, repo.Save(ctx, "work", smaller))

			loaded, err := repo.Load(ctx, "work")
			require.NoError(t, err)
			assert.Equal(t, smaller, loaded)
		})
	}
}

func TestRepositoryListAndDelete(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.Save(ctx, "zeta", sample(t)))
			require.NoError(t, repo.Save(ctx, "alpha", config.Data{}))

			profiles, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, profiles, 2)
			assert.Equal(t, "alpha", profiles[0].Name)
			assert.Equal(t, 0, profiles[0].Commands)
			assert.Equal(t, "zeta", profiles[1].Name)
			assert.Equal(t, 7, profiles[1].Commands)
			assert.Equal(t, 4, profiles[1].KeyMaps)
			assert.False(t, profiles[1].UpdatedAt.IsZero())

			require.NoError(t, repo.Delete(ctx, "zeta"))
			_, err = repo.Load(ctx, "zeta")
			assert.ErrorIs(t, err, ErrProfileNotFound)

			err = repo.Delete(ctx, "zeta")
			assert.ErrorIs(t, err, ErrProfileNotFound)
		})
	}
}

func TestRepositoryRejectsBadNames(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, repo.Save(ctx, "", config.Data{}), ErrEmptyProfile)
			_, err := repo.Load(ctx, "")
			assert.ErrorIs(t, err, ErrEmptyProfile)
			_, err = repo.Load(ctx, "missing")
			assert.ErrorIs(t, err, ErrProfileNotFound)
			assert.ErrorIs(t, repo.Save(ctx, "my profile", config.Data{}), validation.ErrInvalidIdentifier)
		})
	}
}

func TestFilesystemRejectsPathNames(t *testing.T) {
	repo, err := NewFilesystemRepository(t.TempDir())
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Save(context.Background(), "../escape", config.Data{}), validation.ErrInvalidIdentifier)
	assert.ErrorIs(t, repo.Delete(context.Background(), `a\b`), validation.ErrInvalidIdentifier)
}

func TestInitializeDatabaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "keychord.db")

	repo, err := NewSQLiteRepositoryWithPath(ctx, path)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, DefaultProfile, sample(t)))
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepositoryWithPath(ctx, path)
	require.NoError(t, err)
	defer func() { _ = repo.Close() }()

	var version int
	require.NoError(t, repo.db.QueryRow("SELECT MAX(version) FROM migrations").Scan(&version))
	assert.Equal(t, MigrationVersion, version)

	loaded, err := repo.Load(ctx, DefaultProfile)
	require.NoError(t, err)
	assert.Len(t, loaded.Commands, 7)
}

// BenchmarkSQLiteSaveLoad benchmarks storing and restoring a profile of n bindings.
func BenchmarkSQLiteSaveLoad(b *testing.B) {
	for _, n := range []int{10, 100, 500} {
		b.Run(fmt.Sprintf("bindings=%d", n), func(b *testing.B) {
			ctx := context.Background()
			repo, err := NewSQLiteRepositoryWithPath(ctx, filepath.Join(b.TempDir(), "bench.db"))
			require.NoError(b, err)
			defer func() { _ = repo.Close() }()

			var data config.Data
			for i := 0; i < n; i++ {
				name := fmt.Sprintf("cmd_%d", i)
				data.Commands = append(data.Commands, config.Command{
					Name: name, Type: config.FunctionSequence, Steps: []string{"a", "b"}, When: "true",
				})
				data.KeyMaps = append(data.KeyMaps, config.KeyMap{
					Keys: []string{"g", fmt.Sprint(i)}, Command: name, Modes: []string{"Normal"},
				})
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				require.NoError(b, repo.Save(ctx, DefaultProfile, data))
				_, err := repo.Load(ctx, DefaultProfile)
				require.NoError(b, err)
			}
		})
	}
}

func TestRedisRepositoryKeys(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	repo := NewRedisRepositoryFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}), WithKeyPrefix("test:"))
	defer func() { _ = repo.Close() }()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	require.NoError(t, repo.Save(ctx, "work", sample(t)))
	assert.True(t, mr.Exists("test:profile:work"))
	assert.Equal(t, "7", mr.HGet("test:profile:work", "commands"))
	assert.Equal(t, "4", mr.HGet("test:profile:work", "key_maps"))

	// An index entry without a hash is skipped.
	_, err = mr.ZAdd("test:profiles", 1, "ghost")
	require.NoError(t, err)

	profiles, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "work", profiles[0].Name)
	assert.Equal(t, fixed, profiles[0].UpdatedAt)
}
