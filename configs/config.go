package configs

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	DeviceStore DeviceStoreConfig
	Redis       RedisConfig
	Remote      RemoteConfig
	Sync        SyncConfig
	Maintenance MaintenanceConfig
	Log         LogConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DeviceStoreConfig struct {
	// Driver selects the backend: sqlite, redis or memory.
	Driver     string
	SQLitePath string
	// KeyPrefix namespaces entries on shared backends.
	KeyPrefix string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type RemoteConfig struct {
	BaseURL        string
	UserID         string
	RequestTimeout time.Duration
	// Bounded retry for cached reads
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	// Per-resource cache TTLs
	ProfileTTL time.Duration
	MetricsTTL time.Duration
	OrdersTTL  time.Duration
}

type SyncConfig struct {
	// ExpiryDays is how long a stored snapshot stays trusted before stock
	// revalidation.
	ExpiryDays int
	// DebounceWindow coalesces a burst of mutations into one write.
	DebounceWindow time.Duration
	// BackupRetention is how many cart_backup_* entries the sweep keeps.
	BackupRetention int
}

type MaintenanceConfig struct {
	Interval time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "127.0.0.1"),
			Port:         getEnv("SERVER_PORT", "8275"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		DeviceStore: DeviceStoreConfig{
			Driver:     getEnv("DEVICE_STORE_DRIVER", "sqlite"),
			SQLitePath: getEnv("DEVICE_STORE_PATH", "shopdata.db"),
			KeyPrefix:  getEnv("DEVICE_STORE_PREFIX", ""),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Remote: RemoteConfig{
			BaseURL:          getEnv("REMOTE_BASE_URL", "http://localhost:9000"),
			UserID:           getEnv("REMOTE_USER_ID", ""),
			RequestTimeout:   getDurationEnv("REMOTE_REQUEST_TIMEOUT", 10*time.Second),
			RetryMaxAttempts: getIntEnv("REMOTE_RETRY_MAX_ATTEMPTS", 3),
			RetryBaseDelay:   getDurationEnv("REMOTE_RETRY_BASE_DELAY", 500*time.Millisecond),
			ProfileTTL:       getDurationEnv("REMOTE_PROFILE_TTL", 10*time.Minute),
			MetricsTTL:       getDurationEnv("REMOTE_METRICS_TTL", 3*time.Minute),
			OrdersTTL:        getDurationEnv("REMOTE_ORDERS_TTL", 3*time.Minute),
		},
		Sync: SyncConfig{
			ExpiryDays:      getIntEnv("SYNC_EXPIRY_DAYS", 7),
			DebounceWindow:  getDurationEnv("SYNC_DEBOUNCE_WINDOW", time.Second),
			BackupRetention: getIntEnv("SYNC_BACKUP_RETENTION", 5),
		},
		Maintenance: MaintenanceConfig{
			Interval: getDurationEnv("MAINTENANCE_INTERVAL", 24*time.Hour),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
