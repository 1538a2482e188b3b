package core

import (
	"context"
	"net/http"

	glog "github.com/goliatone/go-logger/glog"
)

// CredentialStore is the process-wide holder of the current token pair. Load
// returns a zero Credential and a nil error when nothing is stored.
type CredentialStore interface {
	Load(ctx context.Context) (Credential, error)
	Save(ctx context.Context, credential Credential) error
	Clear(ctx context.Context) error
}

// Refresher exchanges a refresh token for a new pair. Any error is a refresh failure.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (RefreshResult, error)
}

type RefresherFunc func(ctx context.Context, refreshToken string) (RefreshResult, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	return f(ctx, refreshToken)
}

type TokenAcquirer interface {
	AcquireToken(ctx context.Context) (string, error)
}

type Teardowner interface {
	Teardown(ctx context.Context, reason TeardownReason) error
	// Episode changes on every Teardown call.
	Episode() uint64
	// SaveInEpisode stores credential only if no teardown ran since episode.
	SaveInEpisode(ctx context.Context, episode uint64, credential Credential) (bool, error)
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

type CredentialStoreFactory interface {
	BuildCredentialStore(ctx context.Context, cfg StorageConfig) (CredentialStore, error)
}

type RefresherFactory interface {
	BuildRefresher(cfg RefreshConfig) (Refresher, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
