package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces snapshot keys: <prefix><series>.
const DefaultKeyPrefix = "chronocast:forecast:"

// RedisConfig holds the connection settings of a RedisStore.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL of each snapshot; 0 means 24 hours.
	TTL time.Duration
	// KeyPrefix defaults to DefaultKeyPrefix.
	KeyPrefix string
}

// RedisStore shares published forecasts between Lambda instances and HTTP
// replicas. Each Put rewrites the series key with a fresh TTL.
type RedisStore struct {
	client    *redis.Client
	ttl       time.Duration
	prefix    string
	closeOnce sync.Once
	closeErr  error
}

// NewRedisStore connects to Redis and checks the connection with a PING.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if cfg.DB < 0 {
		return nil, errors.New("redis database number must be >= 0")
	}
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisStore{client: client, ttl: cfg.TTL, prefix: cfg.KeyPrefix}, nil
}

func (r *RedisStore) key(series string) string {
	return r.prefix + series
}

// Put stores the snapshot as JSON under the series key.
func (r *RedisStore) Put(ctx context.Context, s Snapshot) error {
	if err := ValidateSeries(s.Series); err != nil {
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key(s.Series), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot %s: %w", s.Series, err)
	}
	return nil
}

// GetLatest returns the snapshot for series. A missing or expired key is
// reported as found == false with a nil error.
func (r *RedisStore) GetLatest(ctx context.Context, series string) (Snapshot, bool, error) {
	if err := ValidateSeries(series); err != nil {
		return Snapshot{}, false, err
	}

	data, err := r.client.Get(ctx, r.key(series)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return Snapshot{}, false, nil
	case err != nil:
		return Snapshot{}, false, fmt.Errorf("load snapshot %s: %w", series, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode snapshot %s: %w", series, err)
	}
	return snap, true, nil
}

// Ping reports whether Redis answers.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool. Later calls return the first result.
func (r *RedisStore) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.client.Close()
	})
	return r.closeErr
}
