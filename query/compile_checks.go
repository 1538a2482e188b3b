package query

import (
	"github.com/goliatone/go-authclient/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[SessionStatusMessage, core.SessionStatus] = (*SessionStatusQuery)(nil)
	_ SessionStatusReader                                     = (*core.Client)(nil)
)
