package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-authclient/core"
	authmigrations "github.com/goliatone/go-authclient/migrations"
	"github.com/goliatone/go-authclient/security"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const defaultPingTimeout = 5 * time.Second

type persistenceConfig struct {
	driver string
	server string
	debug  bool
}

func (c persistenceConfig) GetDebug() bool {
	return c.debug
}

func (c persistenceConfig) GetDriver() string {
	return c.driver
}

func (c persistenceConfig) GetServer() string {
	return c.server
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return defaultPingTimeout
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return "go-authclient"
}

// Open connects to the configured database and applies the credential migrations.
func Open(ctx context.Context, cfg core.StorageConfig) (*persistence.Client, error) {
	driver := core.NormalizeStorageDriver(cfg.Driver)
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: storage dsn is required")
	}

	var (
		sqlDriver string
		dialect   schema.Dialect
		target    string
	)
	switch driver {
	case core.StorageDriverSQLite:
		sqlDriver, dialect, target = "sqlite3", sqlitedialect.New(), authmigrations.DialectSQLite
	case core.StorageDriverPostgres:
		sqlDriver, dialect, target = "postgres", pgdialect.New(), authmigrations.DialectPostgres
	default:
		return nil, fmt.Errorf("sqlstore: unsupported storage driver %q", cfg.Driver)
	}

	sqlDB, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", sqlDriver, err)
	}
	if driver == core.StorageDriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(persistenceConfig{driver: sqlDriver, server: dsn, debug: cfg.Debug}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}

	migrationsFS, err := authmigrations.ForDialect(target)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sqlstore: register migrations: %w", err)
	}
	client.RegisterSQLMigrations(migrationsFS)
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return client, nil
}

// OwnedCredentialStore is a credential store that releases its database on Close.
type OwnedCredentialStore struct {
	core.CredentialStore
	client *persistence.Client
}

func (s *OwnedCredentialStore) DB() *bun.DB {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.DB()
}

func (s *OwnedCredentialStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Factory builds SQL-backed credential stores from storage config.
type Factory struct {
	// CacheService overrides the read-through cache built from cfg.CacheTTL.
	CacheService repositorycache.CacheService
}

func NewFactory() Factory {
	return Factory{}
}

func (f Factory) BuildCredentialStore(ctx context.Context, cfg core.StorageConfig) (core.CredentialStore, error) {
	secrets, err := security.FromStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	client, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []Option{WithNamespace(cfg.KeyPrefix)}
	if secrets != nil {
		opts = append(opts, WithSecretProvider(secrets))
	}
	base, err := NewCredentialStore(client.DB(), opts...)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	var store core.CredentialStore = base
	cacheService := f.CacheService
	if cacheService == nil && cfg.CacheTTL > 0 {
		cacheConfig := repositorycache.DefaultConfig()
		cacheConfig.TTL = cfg.CacheTTL
		cacheService, err = repositorycache.NewCacheService(cacheConfig)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("sqlstore: new cache service: %w", err)
		}
	}
	if cacheService != nil {
		cached, cacheErr := NewCachedCredentialStore(base, cacheService, base.Namespace())
		if cacheErr != nil {
			_ = client.Close()
			return nil, cacheErr
		}
		store = cached
	}
	return &OwnedCredentialStore{CredentialStore: store, client: client}, nil
}
