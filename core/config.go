package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverSQLite   = "sqlite3"
	StorageDriverPostgres = "postgres"
	StorageDriverRedis    = "redis"

	DefaultRefreshMaxResponseBodyBytes int64 = 1 << 20
	DefaultStorageKeyPrefix                  = "authclient"
)

type RefreshConfig struct {
	Endpoint             string        `koanf:"endpoint" mapstructure:"endpoint"`
	Timeout              time.Duration `koanf:"timeout" mapstructure:"timeout"`
	MaxResponseBodyBytes int64         `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
}

type TeardownConfig struct {
	// KeepSessionOnReplayUnauthorized leaves the session in place when a replayed
	// request is refused. By default a refused replay tears the session down.
	KeepSessionOnReplayUnauthorized bool `koanf:"keep_session_on_replay_unauthorized" mapstructure:"keep_session_on_replay_unauthorized"`
}

type StorageConfig struct {
	Driver        string        `koanf:"driver" mapstructure:"driver"`
	DSN           string        `koanf:"dsn" mapstructure:"dsn"`
	KeyPrefix     string        `koanf:"key_prefix" mapstructure:"key_prefix"`
	CacheTTL      time.Duration `koanf:"cache_ttl" mapstructure:"cache_ttl"`
	EncryptionKey string        `koanf:"encryption_key" mapstructure:"encryption_key"`
	Debug         bool          `koanf:"debug" mapstructure:"debug"`
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	Refresh     RefreshConfig  `koanf:"refresh" mapstructure:"refresh"`
	Teardown    TeardownConfig `koanf:"teardown" mapstructure:"teardown"`
	Storage     StorageConfig  `koanf:"storage" mapstructure:"storage"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "authclient",
		Refresh: RefreshConfig{
			MaxResponseBodyBytes: DefaultRefreshMaxResponseBodyBytes,
		},
		Storage: StorageConfig{
			Driver:    StorageDriverMemory,
			KeyPrefix: DefaultStorageKeyPrefix,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Refresh.Timeout < 0 {
		return fmt.Errorf("core: refresh.timeout must not be negative")
	}
	if c.Refresh.MaxResponseBodyBytes < 0 {
		return fmt.Errorf("core: refresh.max_response_body_bytes must not be negative")
	}
	if endpoint := strings.TrimSpace(c.Refresh.Endpoint); endpoint != "" {
		parsed, err := url.Parse(endpoint)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("core: refresh.endpoint %q is invalid", endpoint)
		}
	}
	if c.Storage.CacheTTL < 0 {
		return fmt.Errorf("core: storage.cache_ttl must not be negative")
	}
	switch NormalizeStorageDriver(c.Storage.Driver) {
	case StorageDriverMemory:
	case StorageDriverSQLite, StorageDriverPostgres, StorageDriverRedis:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("core: storage.dsn is required for driver %q", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("core: storage.driver %q is unsupported", c.Storage.Driver)
	}
	return nil
}

// NormalizeStorageDriver maps driver aliases onto the canonical driver names.
func NormalizeStorageDriver(driver string) string {
	switch strings.TrimSpace(strings.ToLower(driver)) {
	case "", StorageDriverMemory:
		return StorageDriverMemory
	case "sqlite", StorageDriverSQLite:
		return StorageDriverSQLite
	case "postgresql", "pg", StorageDriverPostgres:
		return StorageDriverPostgres
	case StorageDriverRedis:
		return StorageDriverRedis
	default:
		return strings.TrimSpace(strings.ToLower(driver))
	}
}
