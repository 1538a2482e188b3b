package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-authclient/core"
	"github.com/goliatone/go-authclient/security"
	"github.com/redis/go-redis/v9"
)

type Option func(*CredentialStore)

func WithKeyPrefix(prefix string) Option {
	return func(s *CredentialStore) {
		if trimmed := strings.Trim(strings.TrimSpace(prefix), ":"); trimmed != "" {
			s.prefix = trimmed
		}
	}
}

func WithSecretProvider(provider core.SecretProvider) Option {
	return func(s *CredentialStore) {
		s.secrets = provider
	}
}

// CredentialStore keeps the token pair under <prefix>:access_token and
// <prefix>:refresh_token.
type CredentialStore struct {
	redis   redis.UniversalClient
	prefix  string
	secrets core.SecretProvider
}

func NewCredentialStore(client redis.UniversalClient, opts ...Option) (*CredentialStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redisstore: redis client is required")
	}
	store := &CredentialStore{
		redis:  client,
		prefix: core.DefaultStorageKeyPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *CredentialStore) Key(credentialKey string) string {
	return s.prefix + ":" + credentialKey
}

func (s *CredentialStore) Load(ctx context.Context) (core.Credential, error) {
	if s == nil || s.redis == nil {
		return core.Credential{}, fmt.Errorf("redisstore: credential store is not configured")
	}
	values, err := s.redis.MGet(ctx, s.Key(core.CredentialKeyAccessToken), s.Key(core.CredentialKeyRefreshToken)).Result()
	if err != nil {
		return core.Credential{}, fmt.Errorf("redisstore: load: %w", err)
	}

	decoded := make([]string, len(values))
	for i, raw := range values {
		value, ok := raw.(string)
		if !ok || value == "" {
			continue
		}
		decoded[i], err = s.decode(ctx, core.CredentialKeys[i], value)
		if err != nil {
			return core.Credential{}, err
		}
	}
	return core.Credential{AccessToken: decoded[0], RefreshToken: decoded[1]}, nil
}

// Save writes both keys in a MULTI/EXEC block. An empty token deletes its key.
func (s *CredentialStore) Save(ctx context.Context, credential core.Credential) error {
	if s == nil || s.redis == nil {
		return fmt.Errorf("redisstore: credential store is not configured")
	}
	values := []string{
		strings.TrimSpace(credential.AccessToken),
		strings.TrimSpace(credential.RefreshToken),
	}
	encoded := make([]string, len(values))
	for i, value := range values {
		if value == "" {
			continue
		}
		sealed, err := s.encode(ctx, core.CredentialKeys[i], value)
		if err != nil {
			return err
		}
		encoded[i] = sealed
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range core.CredentialKeys {
			if encoded[i] == "" {
				pipe.Del(ctx, s.Key(key))
				continue
			}
			pipe.Set(ctx, s.Key(key), encoded[i], 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: save: %w", err)
	}
	return nil
}

func (s *CredentialStore) Clear(ctx context.Context) error {
	if s == nil || s.redis == nil {
		return fmt.Errorf("redisstore: credential store is not configured")
	}
	if err := s.redis.Del(ctx, s.Key(core.CredentialKeyAccessToken), s.Key(core.CredentialKeyRefreshToken)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redisstore: clear: %w", err)
	}
	return nil
}

func (s *CredentialStore) encode(ctx context.Context, key, value string) (string, error) {
	if s.secrets == nil {
		return value, nil
	}
	sealed, err := s.secrets.Encrypt(ctx, []byte(value))
	if err != nil {
		return "", fmt.Errorf("redisstore: encrypt %s: %w", key, err)
	}
	return string(sealed), nil
}

func (s *CredentialStore) decode(ctx context.Context, key, value string) (string, error) {
	if s.secrets == nil {
		if security.IsEnvelope([]byte(value)) {
			return "", fmt.Errorf("redisstore: %s is encrypted but no secret provider is configured", key)
		}
		return value, nil
	}
	opened, err := s.secrets.Decrypt(ctx, []byte(value))
	if err != nil {
		return "", fmt.Errorf("redisstore: decrypt %s: %w", key, err)
	}
	return string(opened), nil
}
