package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-authclient/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

type stubCredentialStore struct {
	mu         sync.Mutex
	credential core.Credential
	loadCalls  int
	saveCalls  int
	clearCalls int
	loadErr    error
	clearErr   error

	// loadGate holds Load after it has read the credential.
	loadGate    chan struct{}
	loadEntered chan struct{}
}

func (s *stubCredentialStore) Load(context.Context) (core.Credential, error) {
	s.mu.Lock()
	s.loadCalls++
	credential, err := s.credential, s.loadErr
	s.mu.Unlock()
	if s.loadGate != nil {
		s.loadEntered <- struct{}{}
		<-s.loadGate
	}
	if err != nil {
		return core.Credential{}, err
	}
	return credential, nil
}

func (s *stubCredentialStore) Save(_ context.Context, credential core.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	s.credential = credential
	return nil
}

func (s *stubCredentialStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearCalls++
	if s.clearErr != nil {
		return s.clearErr
	}
	s.credential = core.Credential{}
	return nil
}

func TestCachedCredentialStore_Load_MissFetchThenHit(t *testing.T) {
	base := &stubCredentialStore{credential: core.Credential{AccessToken: "a", RefreshToken: "r"}}
	store, err := NewCachedCredentialStore(base, newTestCacheService(t), "app")
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}

	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("first load: %v", err)
	}
	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if base.loadCalls != 1 {
		t.Fatalf("expected one base load, got %d", base.loadCalls)
	}
	if loaded.AccessToken != "a" {
		t.Fatalf("unexpected cached credential %+v", loaded)
	}
}

func TestCachedCredentialStore_SaveAndClearInvalidate(t *testing.T) {
	ctx := context.Background()
	base := &stubCredentialStore{credential: core.Credential{AccessToken: "a1", RefreshToken: "r1"}}
	store, err := NewCachedCredentialStore(base, newTestCacheService(t), "app")
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}

	if _, err := store.Load(ctx); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if err := store.Save(ctx, core.Credential{AccessToken: "a2", RefreshToken: "r2"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load after save: %v", err)
	}
	if loaded.AccessToken != "a2" {
		t.Fatalf("expected invalidated cache to serve new token, got %+v", loaded)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	loaded, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("load after clear: %v", err)
	}
	if !loaded.IsZero() {
		t.Fatalf("expected empty credential after clear, got %+v", loaded)
	}
	if base.loadCalls != 3 {
		t.Fatalf("expected a base load after each invalidation, got %d", base.loadCalls)
	}
}

func TestCachedCredentialStore_LoadOverlappingClearDoesNotCacheStaleCredential(t *testing.T) {
	ctx := context.Background()
	base := &stubCredentialStore{
		credential:  core.Credential{AccessToken: "a", RefreshToken: "r"},
		loadGate:    make(chan struct{}),
		loadEntered: make(chan struct{}, 8),
	}
	store, err := NewCachedCredentialStore(base, newTestCacheService(t), "app")
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}

	loadDone := make(chan error, 1)
	go func() {
		_, err := store.Load(ctx)
		loadDone <- err
	}()
	select {
	case <-base.loadEntered:
	case <-time.After(2 * time.Second):
		t.Fatalf("base load never started")
	}

	clearDone := make(chan error, 1)
	go func() {
		clearDone <- store.Clear(ctx)
	}()
	time.Sleep(20 * time.Millisecond)
	close(base.loadGate)

	if err := <-loadDone; err != nil {
		t.Fatalf("overlapping load: %v", err)
	}
	if err := <-clearDone; err != nil {
		t.Fatalf("clear: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load after clear: %v", err)
	}
	if !loaded.IsZero() {
		t.Fatalf("expected cleared credential, cache served %+v", loaded)
	}
}

func TestCachedCredentialStore_ClearFailureStillInvalidates(t *testing.T) {
	ctx := context.Background()
	clearErr := errors.New("clear failed")
	base := &stubCredentialStore{credential: core.Credential{AccessToken: "a"}}
	store, err := NewCachedCredentialStore(base, newTestCacheService(t), "app")
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}
	if _, err := store.Load(ctx); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	base.clearErr = clearErr
	if err := store.Clear(ctx); !errors.Is(err, clearErr) {
		t.Fatalf("expected base clear error, got %v", err)
	}
	if _, err := store.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if base.loadCalls != 2 {
		t.Fatalf("expected cache invalidated after failed clear, base loads=%d", base.loadCalls)
	}
}

func TestCachedCredentialStore_LoadErrorPropagates(t *testing.T) {
	loadErr := errors.New("db down")
	base := &stubCredentialStore{loadErr: loadErr}
	store, err := NewCachedCredentialStore(base, newTestCacheService(t), "")
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}
	if _, err := store.Load(context.Background()); !errors.Is(err, loadErr) {
		t.Fatalf("expected base error propagation, got %v", err)
	}
}

func TestNewCachedCredentialStore_RequiresDependencies(t *testing.T) {
	if _, err := NewCachedCredentialStore(nil, newTestCacheService(t), "app"); err == nil {
		t.Fatalf("expected missing base store error")
	}
	if _, err := NewCachedCredentialStore(&stubCredentialStore{}, nil, "app"); err == nil {
		t.Fatalf("expected missing cache service error")
	}
}

func TestCredentialCacheKey_EscapesNamespace(t *testing.T) {
	if got := CredentialCacheKey("tenant a/b"); got != "go-authclient::credential::v1::tenant%20a%2Fb" {
		t.Fatalf("unexpected cache key %q", got)
	}
}

func newTestCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}
