package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dshills/keychord/pkg/config"
	backend "github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "keychord:"

// RedisRepository implements Repository on a Redis server. Each profile is
// a hash holding its YAML document and summary counts; a sorted set indexes
// profile names by update time.
type RedisRepository struct {
	client *backend.Client
	prefix string
	now    func() time.Time
}

// RedisOption configures a RedisRepository.
type RedisOption func(*RedisRepository)

// WithKeyPrefix sets the prefix of every key the repository writes.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisRepository) {
		r.prefix = prefix
	}
}

// NewRedisRepository connects to the Redis server at address.
func NewRedisRepository(address, password string, db int, opts ...RedisOption) *RedisRepository {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisRepositoryFromClient(client, opts...)
}

// NewRedisRepositoryFromURL connects using a redis:// or rediss:// URL,
// e.g. "redis://:password@localhost:6379/0".
func NewRedisRepositoryFromURL(url string, opts ...RedisOption) (*RedisRepository, error) {
	options, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewRedisRepositoryFromClient(backend.NewClient(options), opts...), nil
}

// NewRedisRepositoryFromClient wraps an existing client.
func NewRedisRepositoryFromClient(client *backend.Client, opts ...RedisOption) *RedisRepository {
	r := &RedisRepository{
		client: client,
		prefix: defaultRedisPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisRepository) key(profile string) string {
	return r.prefix + "profile:" + profile
}

func (r *RedisRepository) indexKey() string {
	return r.prefix + "profiles"
}

// Save replaces the document stored under profile.
func (r *RedisRepository) Save(ctx context.Context, profile string, data config.Data) error {
	if err := checkProfile(profile); err != nil {
		return err
	}

	encoded, err := config.MarshalYAML(data)
	if err != nil {
		return fmt.Errorf("failed to marshal profile to YAML: %w", err)
	}
	now := r.now().UTC()

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(profile))
	pipe.HSet(ctx, r.key(profile), map[string]any{
		"document":   encoded,
		"commands":   len(data.Commands),
		"key_maps":   len(data.KeyMaps),
		"updated_at": now.Format(time.RFC3339Nano),
	})
	pipe.ZAdd(ctx, r.indexKey(), backend.Z{
		Score:  float64(now.Unix()),
		Member: profile,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save profile to redis: %w", err)
	}
	return nil
}

// Load parses the document stored under profile.
func (r *RedisRepository) Load(ctx context.Context, profile string) (config.Data, error) {
	if err := checkProfile(profile); err != nil {
		return config.Data{}, err
	}

	doc, err := r.client.HGet(ctx, r.key(profile), "document").Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return config.Data{}, fmt.Errorf("%w: %s", ErrProfileNotFound, profile)
		}
		return config.Data{}, fmt.Errorf("failed to get profile from redis: %w", err)
	}

	data, err := config.ParseYAML(doc)
	if err != nil {
		return config.Data{}, fmt.Errorf("failed to parse stored profile %s: %w", profile, err)
	}
	return data, nil
}

// List returns every indexed profile ordered by name. Index entries whose
// hash has disappeared are skipped.
func (r *RedisRepository) List(ctx context.Context) ([]Profile, error) {
	names, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	profiles := make([]Profile, 0, len(names))
	if len(names) == 0 {
		return profiles, nil
	}

	pipe := r.client.Pipeline()
	summaries := make([]*backend.MapStringStringCmd, len(names))
	for i, name := range names {
		summaries[i] = pipe.HGetAll(ctx, r.key(name))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}

	for i, cmd := range summaries {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		p := Profile{Name: names[i]}
		p.Commands, _ = strconv.Atoi(fields["commands"])
		p.KeyMaps, _ = strconv.Atoi(fields["key_maps"])
		p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields["updated_at"])
		profiles = append(profiles, p)
	}

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles, nil
}

// Delete removes a profile and its index entry.
func (r *RedisRepository) Delete(ctx context.Context, profile string) error {
	if err := checkProfile(profile); err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	deleted := pipe.Del(ctx, r.key(profile))
	pipe.ZRem(ctx, r.indexKey(), profile)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	if deleted.Val() == 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, profile)
	}
	return nil
}

// Close closes the redis client.
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
