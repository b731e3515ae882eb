package devicestore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	config "github.com/pocketmall/shopdata/configs"
	"github.com/pocketmall/shopdata/internal/core/ports"
)

// RedisStore implements ports.DeviceStore on Redis. Used when several
// in-store kiosks share one edge box and the "device" store is a local Redis.
type RedisStore struct {
	r redis.Cmdable
	// optional key prefix to namespace entries
	prefix string
}

// NewRedisStore creates a Redis-backed device store.
func NewRedisStore(r redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{r: r, prefix: prefix}
}

func (s *RedisStore) namespaced(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.r.Get(ctx, s.namespaced(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.r.Set(ctx, s.namespaced(key), value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.r.Del(ctx, s.namespaced(key)).Err()
}

func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := s.namespaced(prefix) + "*"
	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.r.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range batch {
			if s.prefix != "" {
				k = k[len(s.prefix)+1:]
			}
			keys = append(keys, k)
		}
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// NewRedisClient creates and pings a Redis client from config.
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

var _ ports.DeviceStore = (*RedisStore)(nil)
