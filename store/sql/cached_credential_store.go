package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/goliatone/go-authclient/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const credentialCacheKeyPrefix = "go-authclient::credential::v1"

// CachedCredentialStore serves Load from a read-through cache and invalidates
// it after every write. A fill never overlaps a write, so a value read before
// Save or Clear cannot land in the cache after the invalidation.
type CachedCredentialStore struct {
	base      core.CredentialStore
	cache     repositorycache.CacheService
	namespace string

	mu sync.RWMutex
}

func NewCachedCredentialStore(
	base core.CredentialStore,
	cacheService repositorycache.CacheService,
	namespace string,
) (*CachedCredentialStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base credential store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: credential cache service is required")
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = core.DefaultStorageKeyPrefix
	}
	return &CachedCredentialStore{base: base, cache: cacheService, namespace: namespace}, nil
}

// CredentialCacheKey returns go-authclient::credential::v1::<namespace> with the
// namespace URL-path escaped.
func CredentialCacheKey(namespace string) string {
	return credentialCacheKeyPrefix + "::" + url.PathEscape(strings.TrimSpace(namespace))
}

func (s *CachedCredentialStore) Load(ctx context.Context) (core.Credential, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Credential{}, fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repositorycache.GetOrFetch(ctx, s.cache, CredentialCacheKey(s.namespace), func(ctx context.Context) (core.Credential, error) {
		return s.base.Load(ctx)
	})
}

func (s *CachedCredentialStore) Save(ctx context.Context, credential core.Credential) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.base.Save(ctx, credential)
	if invalidateErr := s.invalidate(ctx); err == nil {
		err = invalidateErr
	}
	return err
}

// Clear invalidates the cache even when the base store fails.
func (s *CachedCredentialStore) Clear(ctx context.Context) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.base.Clear(ctx)
	if invalidateErr := s.invalidate(ctx); err == nil {
		err = invalidateErr
	}
	return err
}

func (s *CachedCredentialStore) invalidate(ctx context.Context) error {
	return s.cache.Delete(ctx, CredentialCacheKey(s.namespace))
}
