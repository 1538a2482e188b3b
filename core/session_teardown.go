package core

import (
	"context"
	"sync"
	"time"
)

type SessionTeardownDependencies struct {
	Store    CredentialStore
	Handlers []SessionExpiredHandler
	Logger   Logger
	Metrics  MetricsRecorder
}

// SessionTeardown clears credentials and signals session expiry. The signal is
// emitted once per episode; Arm starts a new episode after a fresh login.
type SessionTeardown struct {
	store    CredentialStore
	observer observer

	// writeMu orders Clear against SaveInEpisode.
	writeMu  sync.Mutex
	mu       sync.Mutex
	handlers []SessionExpiredHandler
	tornDown bool
	episode  uint64
	now      func() time.Time
}

func NewSessionTeardown(deps SessionTeardownDependencies) (*SessionTeardown, error) {
	if deps.Store == nil {
		return nil, badInputError("core: session teardown requires a credential store")
	}
	handlers := make([]SessionExpiredHandler, 0, len(deps.Handlers))
	for _, handler := range deps.Handlers {
		if handler != nil {
			handlers = append(handlers, handler)
		}
	}
	return &SessionTeardown{
		store:    deps.Store,
		observer: newObserver(deps.Logger, deps.Metrics),
		handlers: handlers,
		now:      time.Now,
	}, nil
}

// OnSessionExpired registers an additional handler.
func (t *SessionTeardown) OnSessionExpired(handler SessionExpiredHandler) {
	if t == nil || handler == nil {
		return
	}
	t.mu.Lock()
	t.handlers = append(t.handlers, handler)
	t.mu.Unlock()
}

// Teardown clears the store on every call and notifies handlers only on the
// first call of the current episode.
func (t *SessionTeardown) Teardown(ctx context.Context, reason TeardownReason) (err error) {
	if t == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := t.now()

	t.writeMu.Lock()
	t.mu.Lock()
	emit := !t.tornDown
	t.tornDown = true
	t.episode++
	handlers := append([]SessionExpiredHandler(nil), t.handlers...)
	t.mu.Unlock()

	defer func() {
		t.observer.observeOperation(ctx, startedAt, "teardown", err, map[string]any{
			"reason":  string(reason),
			"emitted": emit,
		})
	}()

	clearErr := t.store.Clear(ctx)
	t.writeMu.Unlock()
	if clearErr != nil {
		err = StoreError(clearErr, "core: clear credentials")
	}
	if !emit {
		return err
	}

	event := SessionExpiredEvent{Reason: reason, OccurredAt: startedAt.UTC()}
	for _, handler := range handlers {
		handler(ctx, event)
	}
	return err
}

func (t *SessionTeardown) Episode() uint64 {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.episode
}

// SaveInEpisode writes credential unless a Teardown call has happened since
// episode was read. It reports whether the credential was stored.
func (t *SessionTeardown) SaveInEpisode(ctx context.Context, episode uint64, credential Credential) (bool, error) {
	if t == nil {
		return false, internalError("core: session teardown is nil")
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.Episode() != episode {
		return false, nil
	}
	if err := t.store.Save(ctx, credential); err != nil {
		return false, err
	}
	return true, nil
}

// Arm ends the current teardown episode.
func (t *SessionTeardown) Arm() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.tornDown = false
	t.mu.Unlock()
}

func (t *SessionTeardown) TornDown() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tornDown
}
