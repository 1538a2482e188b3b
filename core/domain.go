package core

import (
	"context"
	"strings"
	"time"
)

const (
	CredentialKeyAccessToken  = "access_token"
	CredentialKeyRefreshToken = "refresh_token"
)

// CredentialKeys lists the well-known persistence keys in write order.
var CredentialKeys = []string{CredentialKeyAccessToken, CredentialKeyRefreshToken}

// Credential is the access/refresh token pair owned by a CredentialStore.
type Credential struct {
	AccessToken  string
	RefreshToken string
}

func (c Credential) HasAccessToken() bool {
	return strings.TrimSpace(c.AccessToken) != ""
}

func (c Credential) HasRefreshToken() bool {
	return strings.TrimSpace(c.RefreshToken) != ""
}

func (c Credential) IsZero() bool {
	return !c.HasAccessToken() && !c.HasRefreshToken()
}

func (c Credential) normalized() Credential {
	return Credential{
		AccessToken:  strings.TrimSpace(c.AccessToken),
		RefreshToken: strings.TrimSpace(c.RefreshToken),
	}
}

type RefreshState string

const (
	RefreshStateIdle       RefreshState = "idle"
	RefreshStateRefreshing RefreshState = "refreshing"
)

// RefreshResult is the decoded payload of a successful refresh call. An empty
// RefreshToken means the previously stored refresh token stays valid.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

type TeardownReason string

const (
	TeardownReasonRefreshFailed TeardownReason = "refresh_failed"
	TeardownReasonUnauthorized  TeardownReason = "unauthorized"
	TeardownReasonLogout        TeardownReason = "logout"
)

// SessionExpiredEvent is delivered once per teardown episode.
type SessionExpiredEvent struct {
	Reason     TeardownReason
	OccurredAt time.Time
}

type SessionExpiredHandler func(ctx context.Context, event SessionExpiredEvent)

type SessionStatus struct {
	HasAccessToken  bool
	HasRefreshToken bool
	RefreshState    RefreshState
	TornDown        bool
}
