package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-authclient/core"
)

const DefaultEnvPrefix = "AUTHCLIENT_"

// envConfig uses pointers so unset variables stay out of the loaded layer.
type envConfig struct {
	ServiceName *string `env:"SERVICE_NAME"`

	RefreshEndpoint             *string        `env:"REFRESH_ENDPOINT"`
	RefreshTimeout              *time.Duration `env:"REFRESH_TIMEOUT"`
	RefreshMaxResponseBodyBytes *int64         `env:"REFRESH_MAX_RESPONSE_BODY_BYTES"`

	TeardownKeepSessionOnReplayUnauthorized *bool `env:"TEARDOWN_KEEP_SESSION_ON_REPLAY_UNAUTHORIZED"`

	StorageDriver        *string        `env:"STORAGE_DRIVER"`
	StorageDSN           *string        `env:"STORAGE_DSN"`
	StorageKeyPrefix     *string        `env:"STORAGE_KEY_PREFIX"`
	StorageCacheTTL      *time.Duration `env:"STORAGE_CACHE_TTL"`
	StorageEncryptionKey *string        `env:"STORAGE_ENCRYPTION_KEY"`
	StorageDebug         *bool          `env:"STORAGE_DEBUG"`
}

// EnvLoader reads AUTHCLIENT_* variables into the raw map consumed by
// core.CfgxConfigProvider.
type EnvLoader struct {
	Prefix string
	// Environment replaces the process environment when set.
	Environment map[string]string
}

func NewEnvLoader() EnvLoader {
	return EnvLoader{Prefix: DefaultEnvPrefix}
}

func (l EnvLoader) LoadRaw(context.Context) (map[string]any, error) {
	prefix := l.Prefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	var parsed envConfig
	if err := env.ParseWithOptions(&parsed, env.Options{
		Prefix:      prefix,
		Environment: l.Environment,
	}); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	return parsed.toRaw(), nil
}

func (c envConfig) toRaw() map[string]any {
	raw := map[string]any{}
	if c.ServiceName != nil {
		raw["service_name"] = *c.ServiceName
	}

	refresh := map[string]any{}
	setString(refresh, "endpoint", c.RefreshEndpoint)
	if c.RefreshTimeout != nil {
		refresh["timeout"] = *c.RefreshTimeout
	}
	if c.RefreshMaxResponseBodyBytes != nil {
		refresh["max_response_body_bytes"] = *c.RefreshMaxResponseBodyBytes
	}
	if len(refresh) > 0 {
		raw["refresh"] = refresh
	}

	if c.TeardownKeepSessionOnReplayUnauthorized != nil {
		raw["teardown"] = map[string]any{
			"keep_session_on_replay_unauthorized": *c.TeardownKeepSessionOnReplayUnauthorized,
		}
	}

	storage := map[string]any{}
	setString(storage, "driver", c.StorageDriver)
	setString(storage, "dsn", c.StorageDSN)
	setString(storage, "key_prefix", c.StorageKeyPrefix)
	setString(storage, "encryption_key", c.StorageEncryptionKey)
	if c.StorageCacheTTL != nil {
		storage["cache_ttl"] = *c.StorageCacheTTL
	}
	if c.StorageDebug != nil {
		storage["debug"] = *c.StorageDebug
	}
	if len(storage) > 0 {
		raw["storage"] = storage
	}
	return raw
}

func setString(target map[string]any, key string, value *string) {
	if value != nil {
		target[key] = *value
	}
}

var _ core.RawConfigLoader = EnvLoader{}
