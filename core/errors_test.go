package core

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestErrorMapper_AssignsStableCodes(t *testing.T) {
	mapped := errorMapper(stderrors.New(`refresh endpoint returned {"error":"invalid_refresh_token"}`))
	if mapped.TextCode != ErrorRefreshFailed {
		t.Fatalf("expected refresh failed text code, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on mapped error, got %d", mapped.Code)
	}

	mapped = errorMapper(stderrors.New("core: access token is required"))
	if mapped.TextCode != ErrorBadInput {
		t.Fatalf("expected bad input code, got %q", mapped.TextCode)
	}
	if mapped.Category != goerrors.CategoryBadInput {
		t.Fatalf("expected bad input category, got %q", mapped.Category)
	}

	mapped = errorMapper(stderrors.New("core: refresh coordinator is closed"))
	if mapped.TextCode != ErrorSessionClosed {
		t.Fatalf("expected session closed code, got %q", mapped.TextCode)
	}
}

func TestErrorMapper_PreservesRichErrors(t *testing.T) {
	rich := goerrors.New("upstream down", goerrors.CategoryExternal)
	mapped := errorMapper(rich)
	if mapped.TextCode != ErrorExternalFailure {
		t.Fatalf("expected external failure default text code, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 default code, got %d", mapped.Code)
	}
}

func TestRefreshFailedError_IsUniformAndSourceless(t *testing.T) {
	first := RefreshFailedError()
	second := RefreshFailedError()
	if first == second {
		t.Fatalf("expected a fresh error value per waiter")
	}
	if first.Source != nil {
		t.Fatalf("expected refresh failure to carry no source")
	}
	if first.Message != second.Message || first.TextCode != second.TextCode {
		t.Fatalf("expected uniform refresh failure errors")
	}
	if strings.Contains(first.Error(), "source:") {
		t.Fatalf("expected no endpoint detail in message, got %q", first.Error())
	}
	if !IsRefreshFailed(first) || !IsAuthFailure(first) {
		t.Fatalf("expected refresh failure to be an auth failure")
	}
}

func TestUnauthorizedError_CarriesRequestMetadata(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://api.example.com/v1/items", nil)
	err := UnauthorizedError(req)
	if !IsUnauthorized(err) || !IsAuthFailure(err) {
		t.Fatalf("expected unauthorized auth failure, got %v", err)
	}
	if err.Metadata["path"] != "/v1/items" || err.Metadata["method"] != http.MethodGet {
		t.Fatalf("unexpected metadata: %#v", err.Metadata)
	}
}

func TestStoreError_WrapsPlainAndRichErrors(t *testing.T) {
	if StoreError(nil, "noop") != nil {
		t.Fatalf("expected nil for nil source")
	}
	plain := StoreError(stderrors.New("disk full"), "core: save credential")
	if plain.TextCode != ErrorStoreFailure {
		t.Fatalf("expected store failure code, got %q", plain.TextCode)
	}
	if !stderrors.Is(plain, plain.Source) {
		t.Fatalf("expected wrapped source")
	}

	rich := StoreError(goerrors.New("bad key", goerrors.CategoryBadInput), "core: save credential")
	if rich.TextCode != ErrorBadInput {
		t.Fatalf("expected rich category to drive text code, got %q", rich.TextCode)
	}
}

func TestClientMethods_MapErrorsToStableCodes(t *testing.T) {
	client, err := NewClient(Config{}, WithRefresher(RefresherFunc(func(context.Context, string) (RefreshResult, error) {
		return RefreshResult{}, nil
	})))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	err = client.Login(context.Background(), Credential{})
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected go-errors type, got %T", err)
	}
	if richErr.TextCode != ErrorBadInput {
		t.Fatalf("expected bad input text code, got %q", richErr.TextCode)
	}
}

func TestClientMethods_PassThroughContextErrors(t *testing.T) {
	refresher := newGatedRefresher(RefreshResult{AccessToken: "next"}, nil)
	client, err := NewClient(Config{}, WithRefresher(refresher))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Login(context.Background(), Credential{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Refresh(ctx); !stderrors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	refresher.open()
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
