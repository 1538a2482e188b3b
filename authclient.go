package authclient

import (
	"github.com/goliatone/go-authclient/core"
	"github.com/goliatone/go-authclient/transport"
)

type Config = core.Config
type RefreshConfig = core.RefreshConfig
type TeardownConfig = core.TeardownConfig
type StorageConfig = core.StorageConfig

type Option = core.Option

type Client = core.Client
type ClientDependencies = core.ClientDependencies

type Credential = core.Credential
type CredentialStore = core.CredentialStore
type Refresher = core.Refresher
type RefreshResult = core.RefreshResult
type SessionStatus = core.SessionStatus
type SessionExpiredEvent = core.SessionExpiredEvent
type SessionExpiredHandler = core.SessionExpiredHandler
type TeardownReason = core.TeardownReason

var (
	WithLogger                 = core.WithLogger
	WithLoggerProvider         = core.WithLoggerProvider
	WithMetricsRecorder        = core.WithMetricsRecorder
	WithErrorMapper            = core.WithErrorMapper
	WithConfigProvider         = core.WithConfigProvider
	WithOptionsResolver        = core.WithOptionsResolver
	WithHTTPDoer               = core.WithHTTPDoer
	WithCredentialStore        = core.WithCredentialStore
	WithCredentialStoreFactory = core.WithCredentialStoreFactory
	WithRefresher              = core.WithRefresher
	WithRefresherFactory       = core.WithRefresherFactory
	WithSessionExpiredHandler  = core.WithSessionExpiredHandler
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// New builds a Client with the REST refresher and the storage drivers of this
// module registered as defaults. Options passed by the caller take precedence.
func New(cfg Config, opts ...Option) (*Client, error) {
	defaults := []Option{
		core.WithCredentialStoreFactory(NewStoreFactory()),
		core.WithRefresherFactory(transport.RefresherFactory{}),
	}
	return core.NewClient(cfg, append(defaults, opts...)...)
}

// NewClient builds a Client from core alone; storage other than memory needs a factory option.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	return core.NewClient(cfg, opts...)
}
