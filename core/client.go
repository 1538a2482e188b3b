package core

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// DoerFunc adapts a function, such as a base RoundTripper, to HTTPDoer.
type DoerFunc func(req *http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Client runs application requests through the authenticated pipeline:
// tap, dispatch, classify, and at most one refresh-and-replay.
type Client struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	observer        observer

	doer        HTTPDoer
	store       CredentialStore
	ownedStore  io.Closer
	refresher   Refresher
	tap         *RequestTap
	teardown    *SessionTeardown
	coordinator *RefreshCoordinator
	classifier  *ResponseClassifier
}

type ClientDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorMapper     ErrorMapper
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	HTTPDoer        HTTPDoer
	CredentialStore CredentialStore
	Refresher       Refresher
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	builder := defaultClientBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("authclient", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("authclient"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.httpDoer == nil {
		builder.httpDoer = &http.Client{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	var owned io.Closer
	store := builder.credentialStore
	if store == nil {
		store, owned, err = buildCredentialStore(builder.storeFactory, finalConfig.Storage)
		if err != nil {
			return nil, mapBuildError(builder.errorMapper, err)
		}
	}

	refresher := builder.refresher
	if refresher == nil && builder.refresherFactory != nil {
		refresher, err = builder.refresherFactory.BuildRefresher(finalConfig.Refresh)
		if err != nil {
			closeOwned(owned)
			return nil, mapBuildError(builder.errorMapper, err)
		}
	}
	if refresher == nil {
		closeOwned(owned)
		return nil, badInputError("core: a refresher or refresher factory is required")
	}

	teardown, err := NewSessionTeardown(SessionTeardownDependencies{
		Store:    store,
		Handlers: builder.expiredHandlers,
		Logger:   logger,
		Metrics:  builder.metricsRecorder,
	})
	if err != nil {
		closeOwned(owned)
		return nil, err
	}
	coordinator, err := NewRefreshCoordinator(RefreshCoordinatorDependencies{
		Store:     store,
		Refresher: refresher,
		Teardown:  teardown,
		Timeout:   finalConfig.Refresh.Timeout,
		Logger:    logger,
		Metrics:   builder.metricsRecorder,
	})
	if err != nil {
		closeOwned(owned)
		return nil, err
	}

	classifier := NewResponseClassifier(coordinator)
	if !finalConfig.Teardown.KeepSessionOnReplayUnauthorized {
		classifier.onTerminal = func(ctx context.Context, _ RequestAttempt) {
			_ = teardown.Teardown(context.WithoutCancel(ctx), TeardownReasonUnauthorized)
		}
	}

	return &Client{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		observer:        newObserver(logger, builder.metricsRecorder),
		doer:            builder.httpDoer,
		store:           store,
		ownedStore:      owned,
		refresher:       refresher,
		tap:             NewRequestTap(store),
		teardown:        teardown,
		coordinator:     coordinator,
		classifier:      classifier,
	}, nil
}

func buildCredentialStore(factory CredentialStoreFactory, cfg StorageConfig) (CredentialStore, io.Closer, error) {
	if factory == nil {
		if NormalizeStorageDriver(cfg.Driver) != StorageDriverMemory {
			return nil, nil, badInputError("core: storage driver " + cfg.Driver + " requires a credential store factory")
		}
		return NewMemoryCredentialStore(), nil, nil
	}
	store, err := factory.BuildCredentialStore(context.Background(), cfg)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, internalError("core: credential store factory returned no store")
	}
	closer, _ := store.(io.Closer)
	return store, closer, nil
}

func closeOwned(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (c *Client) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.config
}

func (c *Client) Dependencies() ClientDependencies {
	if c == nil {
		return ClientDependencies{}
	}
	return ClientDependencies{
		Logger:          c.logger,
		LoggerProvider:  c.loggerProvider,
		MetricsRecorder: c.metricsRecorder,
		ErrorMapper:     c.errorMapper,
		ConfigProvider:  c.configProvider,
		OptionsResolver: c.optionsResolver,
		HTTPDoer:        c.doer,
		CredentialStore: c.store,
		Refresher:       c.refresher,
	}
}

func (c *Client) Coordinator() *RefreshCoordinator {
	if c == nil {
		return nil
	}
	return c.coordinator
}

func (c *Client) SessionTeardown() *SessionTeardown {
	if c == nil {
		return nil
	}
	return c.teardown
}

// Do sends req with the stored access token. A 401 on the first attempt
// triggers a coordinated refresh and a single replay; transport errors and
// non-401 responses are returned untouched.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c == nil {
		return nil, internalError("core: client is nil")
	}
	attempt, err := NewRequestAttempt(req)
	if err != nil {
		return nil, err
	}
	ctx := attempt.Request().Context()

	out, err := c.tap.Prepare(ctx, attempt)
	if err != nil {
		return nil, err
	}
	res, err := c.doer.Do(out)
	return c.classifier.Classify(ctx, attempt, res, err, c.replay)
}

func (c *Client) replay(ctx context.Context, attempt RequestAttempt, accessToken string) (*http.Response, error) {
	out, err := c.tap.PrepareWithToken(ctx, attempt, accessToken)
	if err != nil {
		return nil, err
	}
	c.observer.logDebug(ctx, "replaying request with refreshed credential", map[string]any{
		"method": out.Method,
		"path":   out.URL.Path,
	})
	return c.doer.Do(out)
}

// Login stores a freshly issued credential and starts a new session episode.
func (c *Client) Login(ctx context.Context, credential Credential) (err error) {
	startedAt := time.Now().UTC()
	defer func() {
		c.observer.observeOperation(ctx, startedAt, "login", err, map[string]any{
			"has_refresh_token": credential.HasRefreshToken(),
		})
	}()

	credential = credential.normalized()
	if !credential.HasAccessToken() {
		err = badInputError("core: access token is required")
		return err
	}
	if saveErr := c.store.Save(ctx, credential); saveErr != nil {
		err = c.mapError(StoreError(saveErr, "core: save credential"))
		return err
	}
	c.teardown.Arm()
	return nil
}

// Logout ends the session. It is safe to call repeatedly.
func (c *Client) Logout(ctx context.Context) error {
	return c.mapError(c.teardown.Teardown(ctx, TeardownReasonLogout))
}

// Refresh forces a coordinated refresh and returns the new access token.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	token, err := c.coordinator.AcquireToken(ctx)
	if err != nil {
		return "", c.mapError(err)
	}
	return token, nil
}

func (c *Client) Status(ctx context.Context) (SessionStatus, error) {
	credential, err := c.store.Load(ctx)
	if err != nil {
		return SessionStatus{}, c.mapError(StoreError(err, "core: load credential"))
	}
	return SessionStatus{
		HasAccessToken:  credential.HasAccessToken(),
		HasRefreshToken: credential.HasRefreshToken(),
		RefreshState:    c.coordinator.State(),
		TornDown:        c.teardown.TornDown(),
	}, nil
}

// Close stops the coordinator and releases a store the client opened itself.
// Stored credentials survive.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if err := c.coordinator.Close(); err != nil {
		return err
	}
	if c.ownedStore != nil {
		if err := c.ownedStore.Close(); err != nil {
			return c.mapError(StoreError(err, "core: close credential store"))
		}
	}
	return nil
}

func (c *Client) mapError(err error) error {
	if err == nil {
		return nil
	}
	if c == nil || c.errorMapper == nil {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	mapped := c.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
