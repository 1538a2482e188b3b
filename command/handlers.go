package command

import (
	"context"

	"github.com/goliatone/go-authclient/core"
	gocmd "github.com/goliatone/go-command"
)

type SessionService interface {
	Login(ctx context.Context, credential core.Credential) error
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) (string, error)
}

type LoginCommand struct {
	service SessionService
}

func NewLoginCommand(service SessionService) *LoginCommand {
	return &LoginCommand{service: service}
}

func (c *LoginCommand) Execute(ctx context.Context, msg LoginMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: login service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.service.Login(ctx, msg.Credential)
}

type LogoutCommand struct {
	service SessionService
}

func NewLogoutCommand(service SessionService) *LogoutCommand {
	return &LogoutCommand{service: service}
}

func (c *LogoutCommand) Execute(ctx context.Context, _ LogoutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: logout service is required")
	}
	return c.service.Logout(ctx)
}

// RefreshCommand joins or starts a coordinated refresh cycle.
type RefreshCommand struct {
	service SessionService
}

func NewRefreshCommand(service SessionService) *RefreshCommand {
	return &RefreshCommand{service: service}
}

func (c *RefreshCommand) Execute(ctx context.Context, _ RefreshMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: refresh service is required")
	}
	token, err := c.service.Refresh(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, RefreshResult{AccessToken: token})
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
