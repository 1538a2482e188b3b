package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

// errSessionEnded marks a cycle whose session was torn down before the refreshed
// credential could be stored.
var errSessionEnded = errors.New("core: session ended during refresh")

type RefreshCoordinatorDependencies struct {
	Store     CredentialStore
	Refresher Refresher
	Teardown  Teardowner
	// Timeout bounds one refresh call. Zero leaves it to the refresher.
	Timeout time.Duration
	Logger  Logger
	Metrics MetricsRecorder
}

type refreshOutcome struct {
	token string
	err   error
}

// refreshCycle is the REFRESHING state. A nil cycle is IDLE.
type refreshCycle struct {
	id        uint64
	startedAt time.Time
	waiters   []chan refreshOutcome
}

// RefreshCoordinator serializes credential refresh. Every caller that asks for a
// token while a refresh is in flight joins the same cycle and receives its
// outcome; at most one refresh call runs at a time.
type RefreshCoordinator struct {
	store     CredentialStore
	refresher Refresher
	teardown  Teardowner
	timeout   time.Duration
	observer  observer

	mu     sync.Mutex
	cycle  *refreshCycle
	nextID uint64
	closed bool

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewRefreshCoordinator(deps RefreshCoordinatorDependencies) (*RefreshCoordinator, error) {
	if deps.Store == nil {
		return nil, badInputError("core: refresh coordinator requires a credential store")
	}
	if deps.Refresher == nil {
		return nil, badInputError("core: refresh coordinator requires a refresher")
	}
	if deps.Timeout < 0 {
		return nil, badInputError("core: refresh timeout must not be negative")
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &RefreshCoordinator{
		store:     deps.Store,
		refresher: deps.Refresher,
		teardown:  deps.Teardown,
		timeout:   deps.Timeout,
		observer:  newObserver(deps.Logger, deps.Metrics),
		baseCtx:   baseCtx,
		cancel:    cancel,
	}, nil
}

// AcquireToken returns the access token produced by the current refresh cycle,
// starting one if the coordinator is idle. Cancelling ctx abandons the wait but
// not the cycle.
func (c *RefreshCoordinator) AcquireToken(ctx context.Context) (string, error) {
	if c == nil {
		return "", internalError("core: refresh coordinator is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	waiter := make(chan refreshOutcome, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", SessionClosedError()
	}
	cycle := c.cycle
	leader := cycle == nil
	if leader {
		c.nextID++
		cycle = &refreshCycle{id: c.nextID, startedAt: time.Now()}
		c.cycle = cycle
		c.wg.Add(1)
	}
	cycle.waiters = append(cycle.waiters, waiter)
	c.mu.Unlock()

	if leader {
		go c.run(cycle)
	}

	select {
	case outcome := <-waiter:
		return outcome.token, outcome.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// State reports whether a refresh cycle is in flight.
func (c *RefreshCoordinator) State() RefreshState {
	if c == nil {
		return RefreshStateIdle
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cycle != nil {
		return RefreshStateRefreshing
	}
	return RefreshStateIdle
}

// Close rejects pending and future callers with a session closed error and
// waits for an in-flight refresh to stop. Credentials are left in place.
func (c *RefreshCoordinator) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cycle := c.cycle
	c.cycle = nil
	c.mu.Unlock()

	c.cancel()
	if cycle != nil {
		for _, waiter := range cycle.waiters {
			waiter <- refreshOutcome{err: SessionClosedError()}
		}
	}
	c.wg.Wait()
	return nil
}

func (c *RefreshCoordinator) run(cycle *refreshCycle) {
	defer c.wg.Done()

	var episode uint64
	if c.teardown != nil {
		episode = c.teardown.Episode()
	}
	token, err := c.refresh(episode)
	if err != nil {
		c.observer.logWarn(c.baseCtx, "credential refresh rejected", map[string]any{
			"cycle_id": cycle.id,
			"error":    err.Error(),
		})
		// Still REFRESHING here: late joiners share this failure episode. A
		// teardown that already ran during the cycle ended it.
		if !c.isClosed() && c.teardown != nil && c.teardown.Episode() == episode {
			if teardownErr := c.teardown.Teardown(context.Background(), TeardownReasonRefreshFailed); teardownErr != nil {
				c.observer.logError(c.baseCtx, "session teardown failed", map[string]any{
					"cycle_id": cycle.id,
					"error":    teardownErr.Error(),
				})
			}
		}
	}

	c.mu.Lock()
	current := c.cycle == cycle
	var waiters []chan refreshOutcome
	if current {
		waiters = cycle.waiters
		c.cycle = nil
	}
	c.mu.Unlock()

	var reported error
	if err != nil {
		reported = RefreshFailedError()
	}
	c.observer.observeOperation(c.baseCtx, cycle.startedAt, "refresh", reported, map[string]any{
		"cycle_id": cycle.id,
		"waiters":  len(waiters),
	})

	// Close already settled the waiters of a cycle it took over.
	for _, waiter := range waiters {
		if err != nil {
			waiter <- refreshOutcome{err: RefreshFailedError()}
			continue
		}
		waiter <- refreshOutcome{token: token}
	}
}

func (c *RefreshCoordinator) refresh(episode uint64) (string, error) {
	ctx := c.baseCtx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	current, err := c.store.Load(ctx)
	if err != nil {
		return "", StoreError(err, "core: load credential for refresh")
	}
	current = current.normalized()
	if !current.HasRefreshToken() {
		return "", badInputError("core: no refresh token available")
	}

	result, err := c.refresher.Refresh(ctx, current.RefreshToken)
	if err != nil {
		return "", err
	}
	next := Credential{AccessToken: result.AccessToken, RefreshToken: result.RefreshToken}.normalized()
	if !next.HasAccessToken() {
		return "", badInputError("core: refresh response is missing an access token")
	}
	if !next.HasRefreshToken() {
		next.RefreshToken = current.RefreshToken
	}
	if c.teardown == nil {
		if err := c.store.Save(ctx, next); err != nil {
			return "", StoreError(err, "core: save refreshed credential")
		}
		return next.AccessToken, nil
	}
	saved, err := c.teardown.SaveInEpisode(ctx, episode, next)
	if err != nil {
		return "", StoreError(err, "core: save refreshed credential")
	}
	if !saved {
		return "", errSessionEnded
	}
	return next.AccessToken, nil
}

func (c *RefreshCoordinator) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
