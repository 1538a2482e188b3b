package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-authclient/core"
	authmigrations "github.com/goliatone/go-authclient/migrations"
	"github.com/goliatone/go-authclient/security"
	sqlstore "github.com/goliatone/go-authclient/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-authclient-tests"
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"session_credentials",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "session_credentials" {
		t.Fatalf("expected session_credentials table, got %q", tableName)
	}
}

func TestCredentialStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewCredentialStore(client.DB(), sqlstore.WithNamespace("app"))
	if err != nil {
		t.Fatalf("new credential store: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if !loaded.IsZero() {
		t.Fatalf("expected empty credential, got %+v", loaded)
	}

	if err := store.Save(ctx, core.Credential{AccessToken: "access-1", RefreshToken: "refresh-1"}); err != nil {
		t.Fatalf("save first pair: %v", err)
	}
	if err := store.Save(ctx, core.Credential{AccessToken: "access-2", RefreshToken: "refresh-2"}); err != nil {
		t.Fatalf("save second pair: %v", err)
	}
	loaded, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.AccessToken != "access-2" || loaded.RefreshToken != "refresh-2" {
		t.Fatalf("expected latest pair, got %+v", loaded)
	}
	if rows := countRows(t, client, "app"); rows != 2 {
		t.Fatalf("expected save to replace rows, got %d", rows)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	loaded, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("load after clear: %v", err)
	}
	if !loaded.IsZero() {
		t.Fatalf("expected empty credential after clear, got %+v", loaded)
	}
}

func TestCredentialStore_SaveSkipsEmptyTokens(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewCredentialStore(client.DB())
	if err != nil {
		t.Fatalf("new credential store: %v", err)
	}
	if err := store.Save(ctx, core.Credential{AccessToken: "access-only"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.AccessToken != "access-only" || loaded.HasRefreshToken() {
		t.Fatalf("unexpected credential %+v", loaded)
	}
	if rows := countRows(t, client, core.DefaultStorageKeyPrefix); rows != 1 {
		t.Fatalf("expected one row, got %d", rows)
	}
}

func TestCredentialStore_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	first, err := sqlstore.NewCredentialStore(client.DB(), sqlstore.WithNamespace("first"))
	if err != nil {
		t.Fatalf("new first store: %v", err)
	}
	second, err := sqlstore.NewCredentialStore(client.DB(), sqlstore.WithNamespace("second"))
	if err != nil {
		t.Fatalf("new second store: %v", err)
	}

	if err := first.Save(ctx, core.Credential{AccessToken: "a1", RefreshToken: "r1"}); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := second.Save(ctx, core.Credential{AccessToken: "a2", RefreshToken: "r2"}); err != nil {
		t.Fatalf("save second: %v", err)
	}
	if err := first.Clear(ctx); err != nil {
		t.Fatalf("clear first: %v", err)
	}

	loaded, err := second.Load(ctx)
	if err != nil {
		t.Fatalf("load second: %v", err)
	}
	if loaded.AccessToken != "a2" || loaded.RefreshToken != "r2" {
		t.Fatalf("expected second namespace untouched, got %+v", loaded)
	}
}

func TestCredentialStore_EncryptsValuesAtRest(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	provider, err := security.NewAppKeySecretProviderFromString("test-app-key", security.WithKeyID("k1"), security.WithVersion(3))
	if err != nil {
		t.Fatalf("new secret provider: %v", err)
	}
	store, err := sqlstore.NewCredentialStore(client.DB(), sqlstore.WithSecretProvider(provider))
	if err != nil {
		t.Fatalf("new credential store: %v", err)
	}
	if err := store.Save(ctx, core.Credential{AccessToken: "plain-access", RefreshToken: "plain-refresh"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	var (
		value   string
		keyID   string
		version int
	)
	if err := client.DB().NewRaw(
		"SELECT value, encryption_key_id, encryption_version FROM session_credentials WHERE key = ?",
		core.CredentialKeyAccessToken,
	).Scan(ctx, &value, &keyID, &version); err != nil {
		t.Fatalf("query raw row: %v", err)
	}
	if strings.Contains(value, "plain-access") || !security.IsEnvelope([]byte(value)) {
		t.Fatalf("expected encrypted envelope at rest, got %q", value)
	}
	if keyID != "k1" || version != 3 {
		t.Fatalf("expected key metadata k1/3, got %s/%d", keyID, version)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.AccessToken != "plain-access" || loaded.RefreshToken != "plain-refresh" {
		t.Fatalf("expected decrypted pair, got %+v", loaded)
	}

	plainStore, err := sqlstore.NewCredentialStore(client.DB())
	if err != nil {
		t.Fatalf("new plain store: %v", err)
	}
	if _, err := plainStore.Load(ctx); err == nil {
		t.Fatalf("expected encrypted rows to require a secret provider")
	}
}

func TestNewCredentialStore_RequiresDB(t *testing.T) {
	if _, err := sqlstore.NewCredentialStore(nil); err == nil {
		t.Fatalf("expected nil db error")
	}
}

func TestFactory_BuildsMigratedSQLiteStore(t *testing.T) {
	ctx := context.Background()
	cfg := core.StorageConfig{
		Driver:    "sqlite",
		DSN:       fmt.Sprintf("file:authclient-factory-%d?mode=memory&cache=shared&_foreign_keys=on", time.Now().UnixNano()),
		KeyPrefix: "factory",
		CacheTTL:  time.Minute,
	}
	store, err := sqlstore.NewFactory().BuildCredentialStore(ctx, cfg)
	if err != nil {
		t.Fatalf("build credential store: %v", err)
	}
	owned, ok := store.(*sqlstore.OwnedCredentialStore)
	if !ok {
		t.Fatalf("expected owned store, got %T", store)
	}
	defer func() { _ = owned.Close() }()
	if _, ok := owned.CredentialStore.(*sqlstore.CachedCredentialStore); !ok {
		t.Fatalf("expected cached store when cache_ttl is set, got %T", owned.CredentialStore)
	}

	if err := store.Save(ctx, core.Credential{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.AccessToken != "a" {
		t.Fatalf("unexpected credential %+v", loaded)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	loaded, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("load after clear: %v", err)
	}
	if !loaded.IsZero() {
		t.Fatalf("expected cleared credential through cache, got %+v", loaded)
	}
}

func TestOpen_RejectsUnsupportedDriver(t *testing.T) {
	if _, err := sqlstore.Open(context.Background(), core.StorageConfig{Driver: "redis", DSN: "redis://localhost"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, err := sqlstore.Open(context.Background(), core.StorageConfig{Driver: "sqlite"}); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}

func countRows(t *testing.T, client *persistence.Client, namespace string) int {
	t.Helper()
	var count int
	if err := client.DB().NewRaw(
		"SELECT COUNT(*) FROM session_credentials WHERE namespace = ?",
		namespace,
	).Scan(context.Background(), &count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:authclient-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	migrationsFS, err := authmigrations.ForDialect(authmigrations.DialectSQLite)
	if err != nil {
		_ = client.Close()
		t.Fatalf("sqlite migrations: %v", err)
	}
	client.RegisterSQLMigrations(migrationsFS)
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}
