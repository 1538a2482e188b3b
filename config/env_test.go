package config

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-authclient/core"
)

func TestEnvLoader_LoadRawFromProcessEnv(t *testing.T) {
	t.Setenv("AUTHCLIENT_SERVICE_NAME", "billing-api")
	t.Setenv("AUTHCLIENT_REFRESH_ENDPOINT", "https://auth.example.com/refresh")
	t.Setenv("AUTHCLIENT_REFRESH_TIMEOUT", "3s")
	t.Setenv("AUTHCLIENT_TEARDOWN_KEEP_SESSION_ON_REPLAY_UNAUTHORIZED", "true")
	t.Setenv("AUTHCLIENT_STORAGE_CACHE_TTL", "1m")

	raw, err := NewEnvLoader().LoadRaw(context.Background())
	if err != nil {
		t.Fatalf("load raw: %v", err)
	}
	if raw["service_name"] != "billing-api" {
		t.Fatalf("unexpected service name %#v", raw["service_name"])
	}
	refresh, ok := raw["refresh"].(map[string]any)
	if !ok {
		t.Fatalf("expected refresh section, got %#v", raw["refresh"])
	}
	if refresh["endpoint"] != "https://auth.example.com/refresh" {
		t.Fatalf("unexpected endpoint %#v", refresh["endpoint"])
	}
	if refresh["timeout"] != 3*time.Second {
		t.Fatalf("unexpected timeout %#v", refresh["timeout"])
	}
	if _, ok := refresh["max_response_body_bytes"]; ok {
		t.Fatalf("expected unset variable to stay out of the raw map")
	}
	teardown, ok := raw["teardown"].(map[string]any)
	if !ok || teardown["keep_session_on_replay_unauthorized"] != true {
		t.Fatalf("unexpected teardown section %#v", raw["teardown"])
	}
	storage, ok := raw["storage"].(map[string]any)
	if !ok || storage["cache_ttl"] != time.Minute {
		t.Fatalf("unexpected storage section %#v", raw["storage"])
	}
}

func TestEnvLoader_EmptyEnvironmentYieldsEmptyMap(t *testing.T) {
	raw, err := EnvLoader{Environment: map[string]string{"UNRELATED": "x"}}.LoadRaw(context.Background())
	if err != nil {
		t.Fatalf("load raw: %v", err)
	}
	if len(raw) != 0 {
		t.Fatalf("expected empty raw map, got %#v", raw)
	}
}

func TestEnvLoader_CustomPrefixAndEnvironment(t *testing.T) {
	loader := EnvLoader{
		Prefix: "APP_",
		Environment: map[string]string{
			"APP_STORAGE_DRIVER":     "redis",
			"APP_STORAGE_DSN":        "redis://localhost:6379/0",
			"APP_STORAGE_KEY_PREFIX": "app",
			"AUTHCLIENT_SERVICE_NAME": "ignored",
		},
	}
	raw, err := loader.LoadRaw(context.Background())
	if err != nil {
		t.Fatalf("load raw: %v", err)
	}
	if _, ok := raw["service_name"]; ok {
		t.Fatalf("expected default-prefixed variable to be ignored")
	}
	storage := raw["storage"].(map[string]any)
	if storage["driver"] != "redis" || storage["key_prefix"] != "app" {
		t.Fatalf("unexpected storage section %#v", storage)
	}
}

func TestEnvLoader_InvalidDuration(t *testing.T) {
	loader := EnvLoader{Environment: map[string]string{"AUTHCLIENT_REFRESH_TIMEOUT": "soon"}}
	if _, err := loader.LoadRaw(context.Background()); err == nil {
		t.Fatalf("expected duration parse error")
	}
}

func TestEnvLoader_FeedsClientConfig(t *testing.T) {
	loader := EnvLoader{Environment: map[string]string{
		"AUTHCLIENT_SERVICE_NAME":    "env-client",
		"AUTHCLIENT_REFRESH_TIMEOUT": "2s",
	}}
	client, err := core.NewClient(core.Config{},
		core.WithConfigProvider(core.NewCfgxConfigProvider(loader)),
		core.WithRefresher(core.RefresherFunc(func(context.Context, string) (core.RefreshResult, error) {
			return core.RefreshResult{AccessToken: "unused"}, nil
		})),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer func() { _ = client.Close() }()

	cfg := client.Config()
	if cfg.ServiceName != "env-client" {
		t.Fatalf("expected service name from env, got %q", cfg.ServiceName)
	}
	if cfg.Refresh.Timeout != 2*time.Second {
		t.Fatalf("expected refresh timeout from env, got %s", cfg.Refresh.Timeout)
	}
	if cfg.Storage.Driver != core.StorageDriverMemory {
		t.Fatalf("expected default storage driver, got %q", cfg.Storage.Driver)
	}
}
