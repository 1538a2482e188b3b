package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

// gatedRefresher counts refresh calls and blocks each one until release is closed.
type gatedRefresher struct {
	calls   atomic.Int32
	release chan struct{}
	result  RefreshResult
	err     error
	seen    chan string
}

func newGatedRefresher(result RefreshResult, err error) *gatedRefresher {
	return &gatedRefresher{
		release: make(chan struct{}),
		result:  result,
		err:     err,
		seen:    make(chan string, 16),
	}
}

func (r *gatedRefresher) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	r.calls.Add(1)
	r.seen <- refreshToken
	select {
	case <-r.release:
	case <-ctx.Done():
		return RefreshResult{}, ctx.Err()
	}
	if r.err != nil {
		return RefreshResult{}, r.err
	}
	return r.result, nil
}

func (r *gatedRefresher) open() {
	close(r.release)
}

type failingStore struct {
	MemoryCredentialStore
	loadErr  error
	saveErr  error
	clearErr error
}

func (s *failingStore) Load(ctx context.Context) (Credential, error) {
	if s.loadErr != nil {
		return Credential{}, s.loadErr
	}
	return s.MemoryCredentialStore.Load(ctx)
}

func (s *failingStore) Save(ctx context.Context, credential Credential) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryCredentialStore.Save(ctx, credential)
}

func (s *failingStore) Clear(ctx context.Context) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	return s.MemoryCredentialStore.Clear(ctx)
}

type closingStore struct {
	MemoryCredentialStore
	closed atomic.Bool
}

func (s *closingStore) Close() error {
	s.closed.Store(true)
	return nil
}

type staticStoreFactory struct {
	store CredentialStore
	err   error
	cfg   StorageConfig
}

func (f *staticStoreFactory) BuildCredentialStore(_ context.Context, cfg StorageConfig) (CredentialStore, error) {
	f.cfg = cfg
	return f.store, f.err
}

type staticRefresherFactory struct {
	refresher Refresher
	cfg       RefreshConfig
}

func (f *staticRefresherFactory) BuildRefresher(cfg RefreshConfig) (Refresher, error) {
	f.cfg = cfg
	if f.refresher == nil {
		return nil, errors.New("refresher unavailable")
	}
	return f.refresher, nil
}

type expiredRecorder struct {
	mu     sync.Mutex
	events []SessionExpiredEvent
}

func (r *expiredRecorder) handle(_ context.Context, event SessionExpiredEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *expiredRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func waitForWaiters(t *testing.T, coordinator *RefreshCoordinator, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		coordinator.mu.Lock()
		got := 0
		if coordinator.cycle != nil {
			got = len(coordinator.cycle.waiters)
		}
		coordinator.mu.Unlock()
		if got >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d refresh waiters", want)
}
