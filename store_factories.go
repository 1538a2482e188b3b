package authclient

import (
	"context"
	"fmt"

	"github.com/goliatone/go-authclient/core"
	redisstore "github.com/goliatone/go-authclient/store/redis"
	sqlstore "github.com/goliatone/go-authclient/store/sql"
)

// StoreFactory picks a credential store implementation by storage.driver.
type StoreFactory struct {
	SQL   core.CredentialStoreFactory
	Redis core.CredentialStoreFactory
}

func NewStoreFactory() StoreFactory {
	return StoreFactory{
		SQL:   sqlstore.NewFactory(),
		Redis: redisstore.NewFactory(),
	}
}

func (f StoreFactory) BuildCredentialStore(ctx context.Context, cfg core.StorageConfig) (core.CredentialStore, error) {
	switch driver := core.NormalizeStorageDriver(cfg.Driver); driver {
	case core.StorageDriverMemory:
		return core.NewMemoryCredentialStore(), nil
	case core.StorageDriverSQLite, core.StorageDriverPostgres:
		if f.SQL == nil {
			return nil, fmt.Errorf("authclient: no sql store factory configured for driver %q", driver)
		}
		return f.SQL.BuildCredentialStore(ctx, cfg)
	case core.StorageDriverRedis:
		if f.Redis == nil {
			return nil, fmt.Errorf("authclient: no redis store factory configured")
		}
		return f.Redis.BuildCredentialStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("authclient: unsupported storage driver %q", cfg.Driver)
	}
}

var _ core.CredentialStoreFactory = StoreFactory{}
