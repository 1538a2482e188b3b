package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-authclient/core"
	goerrors "github.com/goliatone/go-errors"
)

const defaultRefreshClientTimeout = 30 * time.Second

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type refreshErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// RESTRefresher exchanges a refresh token at a JSON endpoint:
// POST {"refresh_token"} and expect {"access_token","refresh_token"?}.
type RESTRefresher struct {
	Client               core.HTTPDoer
	Endpoint             string
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
}

func NewRESTRefresher(endpoint string, client core.HTTPDoer) *RESTRefresher {
	if client == nil {
		client = &http.Client{Timeout: defaultRefreshClientTimeout}
	}
	return &RESTRefresher{
		Client:               client,
		Endpoint:             strings.TrimSpace(endpoint),
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: core.DefaultRefreshMaxResponseBodyBytes,
	}
}

func (r *RESTRefresher) Refresh(ctx context.Context, refreshToken string) (core.RefreshResult, error) {
	if r == nil || r.Client == nil {
		return core.RefreshResult{}, transportError(
			"transport: refresher requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint, err := url.Parse(strings.TrimSpace(r.Endpoint))
	if err != nil || endpoint.Host == "" {
		return core.RefreshResult{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: refresh endpoint is invalid",
			http.StatusBadRequest,
			map[string]any{"endpoint": strings.TrimSpace(r.Endpoint)},
		)
	}
	if strings.TrimSpace(refreshToken) == "" {
		return core.RefreshResult{}, transportError(
			"transport: refresh token is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			nil,
		)
	}

	payload, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return core.RefreshResult{}, transportWrapError(err, goerrors.CategoryInternal,
			"transport: encode refresh request", http.StatusInternalServerError, nil)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return core.RefreshResult{}, transportWrapError(err, goerrors.CategoryBadInput,
			"transport: create refresh request", http.StatusBadRequest,
			map[string]any{"endpoint": endpoint.String()})
	}
	for key, value := range r.DefaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpRes, err := r.Client.Do(httpReq)
	if err != nil {
		return core.RefreshResult{}, transportWrapError(err, goerrors.CategoryExternal,
			"transport: execute refresh request", http.StatusBadGateway,
			map[string]any{"endpoint": endpoint.String()})
	}
	defer httpRes.Body.Close()

	maxBodyBytes := r.MaxResponseBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = core.DefaultRefreshMaxResponseBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes+1))
	if err != nil {
		return core.RefreshResult{}, transportWrapError(err, goerrors.CategoryExternal,
			"transport: read refresh response", http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode})
	}
	if int64(len(body)) > maxBodyBytes {
		return core.RefreshResult{}, transportError(
			fmt.Sprintf("transport: refresh response exceeds limit of %d bytes", maxBodyBytes),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode, "response_limit_b": maxBodyBytes},
		)
	}

	if httpRes.StatusCode < 200 || httpRes.StatusCode > 299 {
		metadata := map[string]any{"status_code": httpRes.StatusCode}
		var failure refreshErrorResponse
		if json.Unmarshal(body, &failure) == nil && strings.TrimSpace(failure.Error) != "" {
			metadata["error"] = strings.TrimSpace(failure.Error)
		}
		category := goerrors.CategoryExternal
		if httpRes.StatusCode >= 400 && httpRes.StatusCode < 500 {
			category = goerrors.CategoryAuth
		}
		return core.RefreshResult{}, transportError(
			fmt.Sprintf("transport: refresh endpoint returned status %d", httpRes.StatusCode),
			category,
			httpRes.StatusCode,
			metadata,
		)
	}

	var decoded refreshResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return core.RefreshResult{}, transportWrapError(err, goerrors.CategoryExternal,
			"transport: decode refresh response", http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode})
	}
	if strings.TrimSpace(decoded.AccessToken) == "" {
		return core.RefreshResult{}, transportError(
			"transport: refresh response is missing access_token",
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode},
		)
	}
	return core.RefreshResult{
		AccessToken:  strings.TrimSpace(decoded.AccessToken),
		RefreshToken: strings.TrimSpace(decoded.RefreshToken),
	}, nil
}

// RefresherFactory builds a RESTRefresher from the refresh section of the config.
type RefresherFactory struct {
	Client core.HTTPDoer
}

func (f RefresherFactory) BuildRefresher(cfg core.RefreshConfig) (core.Refresher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, transportError(
			"transport: refresh.endpoint is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			nil,
		)
	}
	client := f.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultRefreshClientTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	refresher := NewRESTRefresher(endpoint, client)
	if cfg.MaxResponseBodyBytes > 0 {
		refresher.MaxResponseBodyBytes = cfg.MaxResponseBodyBytes
	}
	return refresher, nil
}
