package core

import (
	"bytes"
	"context"
	"io"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// RequestAttempt is one dispatch of a logical request. It is a value: each
// pipeline stage derives a new attempt instead of mutating a shared one.
type RequestAttempt struct {
	request *http.Request
	retried bool
}

// NewRequestAttempt wraps req for dispatch. Bodies without GetBody are buffered
// once so a replay resends the same bytes; the caller's request is never mutated.
func NewRequestAttempt(req *http.Request) (RequestAttempt, error) {
	if req == nil || req.URL == nil {
		return RequestAttempt{}, badInputError("core: request is required")
	}
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return RequestAttempt{request: req}, nil
	}

	payload, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return RequestAttempt{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "core: buffer request body").
			WithCode(http.StatusBadRequest).
			WithTextCode(ErrorBadInput)
	}

	buffered := req.Clone(req.Context())
	buffered.ContentLength = int64(len(payload))
	buffered.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(payload)), nil
	}
	buffered.Body, _ = buffered.GetBody()
	return RequestAttempt{request: buffered}, nil
}

func (a RequestAttempt) Request() *http.Request {
	return a.request
}

func (a RequestAttempt) Retried() bool {
	return a.retried
}

// MarkRetried returns the replay attempt for the same logical request.
func (a RequestAttempt) MarkRetried() RequestAttempt {
	return RequestAttempt{request: a.request, retried: true}
}

// outgoing clones the request for one dispatch with a fresh body reader.
func (a RequestAttempt) outgoing(ctx context.Context) (*http.Request, error) {
	if a.request == nil {
		return nil, badInputError("core: request is required")
	}
	if ctx == nil {
		ctx = a.request.Context()
	}
	out := a.request.Clone(ctx)
	if a.request.GetBody != nil && a.request.Body != nil && a.request.Body != http.NoBody {
		body, err := a.request.GetBody()
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "core: rewind request body").
				WithCode(http.StatusBadRequest).
				WithTextCode(ErrorBadInput)
		}
		out.Body = body
	}
	return out, nil
}
