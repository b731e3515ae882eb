package health

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/pocketmall/shopdata/internal/core/ports"
)

// deviceStoreHealthChecker probes the device store with a read of a key that
// may not exist; only transport failures are unhealthy.
type deviceStoreHealthChecker struct{ store ports.DeviceStore }

func (d *deviceStoreHealthChecker) Name() string { return "device_store" }
func (d *deviceStoreHealthChecker) Check(ctx context.Context) error {
	_, _, err := d.store.Get(ctx, "health_probe")
	return err
}

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client *redis.Client }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// NewDeviceStoreHealthChecker creates a health checker for the device store.
func NewDeviceStoreHealthChecker(store ports.DeviceStore) ports.HealthChecker {
	return &deviceStoreHealthChecker{store: store}
}

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client *redis.Client) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}
