package redisstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-authclient/core"
	"github.com/goliatone/go-authclient/security"
	"github.com/redis/go-redis/v9"
)

// OwnedCredentialStore closes its redis client on Close.
type OwnedCredentialStore struct {
	*CredentialStore
	client *redis.Client
}

func (s *OwnedCredentialStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

type Factory struct{}

func NewFactory() Factory {
	return Factory{}
}

// BuildCredentialStore dials cfg.DSN (a redis:// URL) and verifies it with PING.
func (Factory) BuildCredentialStore(ctx context.Context, cfg core.StorageConfig) (core.CredentialStore, error) {
	if core.NormalizeStorageDriver(cfg.Driver) != core.StorageDriverRedis {
		return nil, fmt.Errorf("redisstore: unsupported storage driver %q", cfg.Driver)
	}
	options, err := redis.ParseURL(strings.TrimSpace(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("redisstore: parse dsn: %w", err)
	}
	secrets, err := security.FromStorageConfig(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}

	opts := []Option{WithKeyPrefix(cfg.KeyPrefix)}
	if secrets != nil {
		opts = append(opts, WithSecretProvider(secrets))
	}
	store, err := NewCredentialStore(client, opts...)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return &OwnedCredentialStore{CredentialStore: store, client: client}, nil
}
