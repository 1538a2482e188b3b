package authclient

import (
	"fmt"

	authcommand "github.com/goliatone/go-authclient/command"
	authquery "github.com/goliatone/go-authclient/query"
)

type CommandQueryService interface {
	authcommand.SessionService
	authquery.SessionStatusReader
}

type Commands struct {
	Login   *authcommand.LoginCommand
	Logout  *authcommand.LogoutCommand
	Refresh *authcommand.RefreshCommand
}

type Queries struct {
	SessionStatus *authquery.SessionStatusQuery
}

// Facade exposes a Client through go-command handlers.
type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
	bundles  map[string]any
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	hooks *ExtensionHooks
}

// WithExtensionHooks builds the hooks' command/query bundles alongside the
// built-in handlers.
func WithExtensionHooks(hooks *ExtensionHooks) FacadeOption {
	return func(options *facadeOptions) {
		options.hooks = hooks
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("authclient: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		Login:   authcommand.NewLoginCommand(service),
		Logout:  authcommand.NewLogoutCommand(service),
		Refresh: authcommand.NewRefreshCommand(service),
	}
	facade.queries = Queries{
		SessionStatus: authquery.NewSessionStatusQuery(service),
	}

	bundles, err := cfg.hooks.BuildCommandQueryBundles(service)
	if err != nil {
		return nil, err
	}
	facade.bundles = bundles
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Bundle(name string) (any, bool) {
	if f == nil {
		return nil, false
	}
	bundle, ok := f.bundles[name]
	return bundle, ok
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
