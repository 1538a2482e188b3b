package command

import (
	"github.com/goliatone/go-authclient/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Commander[LoginMessage]   = (*LoginCommand)(nil)
	_ gocmd.Commander[LogoutMessage]  = (*LogoutCommand)(nil)
	_ gocmd.Commander[RefreshMessage] = (*RefreshCommand)(nil)
	_ SessionService                  = (*core.Client)(nil)
)
