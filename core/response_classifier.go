package core

import (
	"context"
	"io"
	"net/http"
)

const maxDiscardBodyBytes = 64 << 10

type Verdict int

const (
	// VerdictPassThrough covers every non-401 outcome, transport errors included.
	VerdictPassThrough Verdict = iota
	// VerdictTerminal is a 401 on an attempt that was already replayed.
	VerdictTerminal
	// VerdictRefresh is a 401 on a first attempt.
	VerdictRefresh
)

func (v Verdict) String() string {
	switch v {
	case VerdictTerminal:
		return "terminal"
	case VerdictRefresh:
		return "refresh"
	default:
		return "pass_through"
	}
}

func ClassifyResponse(attempt RequestAttempt, res *http.Response, err error) Verdict {
	if err != nil || res == nil {
		return VerdictPassThrough
	}
	if res.StatusCode != http.StatusUnauthorized {
		return VerdictPassThrough
	}
	if attempt.Retried() {
		return VerdictTerminal
	}
	return VerdictRefresh
}

// ReplayFunc dispatches attempt authorized with accessToken.
type ReplayFunc func(ctx context.Context, attempt RequestAttempt, accessToken string) (*http.Response, error)

type ResponseClassifier struct {
	acquirer   TokenAcquirer
	onTerminal func(ctx context.Context, attempt RequestAttempt)
}

func NewResponseClassifier(acquirer TokenAcquirer) *ResponseClassifier {
	return &ResponseClassifier{acquirer: acquirer}
}

// Classify resolves a completed dispatch into the caller's outcome. A first 401
// acquires a token through the coordinator and replays once; the replay is
// classified again, so a second 401 is terminal.
func (c *ResponseClassifier) Classify(
	ctx context.Context,
	attempt RequestAttempt,
	res *http.Response,
	err error,
	replay ReplayFunc,
) (*http.Response, error) {
	switch ClassifyResponse(attempt, res, err) {
	case VerdictPassThrough:
		return res, err
	case VerdictTerminal:
		discardBody(res)
		if c != nil && c.onTerminal != nil {
			c.onTerminal(ctx, attempt)
		}
		return nil, UnauthorizedError(attempt.Request())
	}

	discardBody(res)
	if c == nil || c.acquirer == nil {
		return nil, internalError("core: response classifier requires a token acquirer")
	}
	if replay == nil {
		return nil, internalError("core: response classifier requires a replay function")
	}

	next := attempt.MarkRetried()
	token, acquireErr := c.acquirer.AcquireToken(ctx)
	if acquireErr != nil {
		return nil, acquireErr
	}
	replayed, replayErr := replay(ctx, next, token)
	return c.Classify(ctx, next, replayed, replayErr, replay)
}

func discardBody(res *http.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxDiscardBodyBytes))
	_ = res.Body.Close()
}
