package core

import (
	"context"
	"net/http"
	"strings"
)

const (
	HeaderAuthorization = "Authorization"
	BearerScheme        = "Bearer"
)

// RequestTap attaches the stored access token to an outgoing request.
type RequestTap struct {
	store CredentialStore
}

func NewRequestTap(store CredentialStore) *RequestTap {
	return &RequestTap{store: store}
}

// Prepare clones the attempt's request and authorizes it with the current
// access token. Without a stored token the request goes out unauthenticated.
func (t *RequestTap) Prepare(ctx context.Context, attempt RequestAttempt) (*http.Request, error) {
	if t == nil || t.store == nil {
		return nil, internalError("core: request tap requires a credential store")
	}
	credential, err := t.store.Load(ctx)
	if err != nil {
		return nil, StoreError(err, "core: load credential")
	}
	return t.PrepareWithToken(ctx, attempt, credential.AccessToken)
}

// PrepareWithToken authorizes the attempt with an explicit token, used for
// replays so a waiter sends exactly the token its refresh cycle produced.
func (t *RequestTap) PrepareWithToken(ctx context.Context, attempt RequestAttempt, accessToken string) (*http.Request, error) {
	out, err := attempt.outgoing(ctx)
	if err != nil {
		return nil, err
	}
	if token := strings.TrimSpace(accessToken); token != "" {
		out.Header.Set(HeaderAuthorization, BearerScheme+" "+token)
	}
	return out, nil
}
