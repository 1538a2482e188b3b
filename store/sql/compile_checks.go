package sqlstore

import (
	"io"

	"github.com/goliatone/go-authclient/core"
)

var (
	_ core.CredentialStore        = (*CredentialStore)(nil)
	_ core.CredentialStore        = (*CachedCredentialStore)(nil)
	_ core.CredentialStore        = (*OwnedCredentialStore)(nil)
	_ io.Closer                   = (*OwnedCredentialStore)(nil)
	_ core.CredentialStoreFactory = Factory{}
)
