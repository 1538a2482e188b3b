package transport

import (
	"net/http"

	"github.com/goliatone/go-authclient/core"
	goerrors "github.com/goliatone/go-errors"
)

// RoundTripper exposes the authenticated pipeline as an http.RoundTripper so
// existing http.Client call sites need no refresh awareness.
type RoundTripper struct {
	Pipeline core.HTTPDoer
}

func NewRoundTripper(pipeline core.HTTPDoer) *RoundTripper {
	return &RoundTripper{Pipeline: pipeline}
}

func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt == nil || rt.Pipeline == nil {
		return nil, transportError(
			"transport: round tripper requires a pipeline",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	return rt.Pipeline.Do(req)
}

// NewHTTPClient returns an http.Client whose transport is the pipeline.
func NewHTTPClient(pipeline core.HTTPDoer) *http.Client {
	return &http.Client{Transport: NewRoundTripper(pipeline)}
}

// BaseDoer adapts a RoundTripper as the pipeline's dispatch step. A nil
// RoundTripper uses http.DefaultTransport.
func BaseDoer(base http.RoundTripper) core.HTTPDoer {
	if base == nil {
		base = http.DefaultTransport
	}
	return core.DoerFunc(base.RoundTrip)
}

var (
	_ http.RoundTripper     = (*RoundTripper)(nil)
	_ core.Refresher        = (*RESTRefresher)(nil)
	_ core.RefresherFactory = RefresherFactory{}
)
