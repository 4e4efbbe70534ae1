package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the key-value backing store. Retention is delegated to
// Redis expiry, so Sweep is a no-op here.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

// RedisOption configures the store.
type RedisOption func(*redisConfig)

type redisConfig struct {
	Addr      string
	Password  string
	DB        int
	Prefix    string
	Retention time.Duration
	PoolSize  int
}

// WithRedisAddr sets the server address.
func WithRedisAddr(addr string) RedisOption {
	return func(c *redisConfig) { c.Addr = addr }
}

// WithRedisAuth sets password and database.
func WithRedisAuth(password string, db int) RedisOption {
	return func(c *redisConfig) { c.Password = password; c.DB = db }
}

// WithRedisPrefix sets the key namespace.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *redisConfig) { c.Prefix = prefix }
}

// WithRedisRetention sets how long snapshots are kept.
func WithRedisRetention(d time.Duration) RedisOption {
	return func(c *redisConfig) {
		if d > 0 {
			c.Retention = d
		}
	}
}

// NewRedisStore connects and pings the server.
func NewRedisStore(opts ...RedisOption) (*RedisStore, error) {
	cfg := &redisConfig{
		Addr:      "localhost:6379",
		Prefix:    "marketlens",
		Retention: 7 * 24 * time.Hour,
		PoolSize:  10,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{client: client, prefix: cfg.Prefix, retention: cfg.Retention}, nil
}

func (s *RedisStore) Get(ctx context.Context, key Key) (Entry, error) {
	b, err := s.client.Get(ctx, s.wrap(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrCacheMiss
	}
	if err != nil {
		return Entry{}, fmt.Errorf("redis get: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, fmt.Errorf("redis decode: %w", err)
	}
	e.Key = key
	return e, nil
}

func (s *RedisStore) Put(ctx context.Context, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("redis encode: %w", err)
	}
	// SET replaces atomically; readers see either the old or the new value
	if err := s.client.Set(ctx, s.wrap(e.Key), b, s.retention).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil // expiry handles retention
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) wrap(key Key) string {
	return s.prefix + ":" + key.String()
}
