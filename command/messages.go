package command

import (
	"strings"

	"github.com/goliatone/go-authclient/core"
)

const (
	TypeLogin   = "authclient.command.session.login"
	TypeLogout  = "authclient.command.session.logout"
	TypeRefresh = "authclient.command.session.refresh"
)

type LoginMessage struct {
	Credential core.Credential
}

func (LoginMessage) Type() string { return TypeLogin }

func (m LoginMessage) Validate() error {
	if strings.TrimSpace(m.Credential.AccessToken) == "" {
		return commandValidationError("access_token", "access token is required")
	}
	return nil
}

type LogoutMessage struct{}

func (LogoutMessage) Type() string { return TypeLogout }

func (LogoutMessage) Validate() error { return nil }

type RefreshMessage struct{}

func (RefreshMessage) Type() string { return TypeRefresh }

func (RefreshMessage) Validate() error { return nil }

// RefreshResult is stored in the context result collector after a forced refresh.
type RefreshResult struct {
	AccessToken string
}
