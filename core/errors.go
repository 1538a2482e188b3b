package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorRefreshFailed   = "AUTH_REFRESH_FAILED"
	ErrorUnauthorized    = "AUTH_UNAUTHORIZED"
	ErrorSessionClosed   = "AUTH_SESSION_CLOSED"
	ErrorBadInput        = "AUTH_BAD_INPUT"
	ErrorStoreFailure    = "AUTH_STORE_FAILURE"
	ErrorExternalFailure = "AUTH_EXTERNAL_FAILURE"
	ErrorInternal        = "AUTH_INTERNAL_ERROR"
)

// RefreshFailedError is the uniform rejection delivered to every waiter of a
// failed refresh cycle. It never carries the refresh endpoint's error body.
func RefreshFailedError() *goerrors.Error {
	return goerrors.New("core: session refresh failed; re-authentication required", goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(ErrorRefreshFailed)
}

// UnauthorizedError rejects a replayed attempt that was refused again.
func UnauthorizedError(req *http.Request) *goerrors.Error {
	err := goerrors.New("core: request unauthorized after credential refresh", goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(ErrorUnauthorized)
	if req != nil && req.URL != nil {
		err.WithMetadata(map[string]any{
			"method": req.Method,
			"path":   req.URL.Path,
		})
	}
	return err
}

func SessionClosedError() *goerrors.Error {
	return goerrors.New("core: refresh coordinator is closed", goerrors.CategoryOperation).
		WithCode(http.StatusServiceUnavailable).
		WithTextCode(ErrorSessionClosed)
}

func StoreError(source error, message string) *goerrors.Error {
	if source == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(source, &richErr) {
		return ensureErrorEnvelope(goerrors.Wrap(source, richErr.Category, message))
	}
	return goerrors.Wrap(source, goerrors.CategoryInternal, message).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorStoreFailure)
}

func badInputError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorBadInput)
}

func internalError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorInternal)
}

func IsRefreshFailed(err error) bool {
	return hasTextCode(err, ErrorRefreshFailed)
}

func IsUnauthorized(err error) bool {
	return hasTextCode(err, ErrorUnauthorized)
}

func IsSessionClosed(err error) bool {
	return hasTextCode(err, ErrorSessionClosed)
}

// IsAuthFailure reports a terminal authentication failure: a refused replay or a
// failed refresh.
func IsAuthFailure(err error) bool {
	return IsRefreshFailed(err) || IsUnauthorized(err)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(richErr.TextCode), code)
}

func errorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "refresh failed"), strings.Contains(msg, "invalid_grant"),
		strings.Contains(msg, "invalid refresh token"), strings.Contains(msg, "invalid_refresh_token"):
		return newError(err.Error(), goerrors.CategoryAuth, ErrorRefreshFailed)
	case strings.Contains(msg, "unauthorized"):
		return newError(err.Error(), goerrors.CategoryAuth, ErrorUnauthorized)
	case strings.Contains(msg, "closed"):
		return newError(err.Error(), goerrors.CategoryOperation, ErrorSessionClosed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "unsupported"):
		return newError(err.Error(), goerrors.CategoryBadInput, ErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func newError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorUnauthorized
	case goerrors.CategoryOperation:
		return ErrorSessionClosed
	case goerrors.CategoryExternal:
		return ErrorExternalFailure
	default:
		return ErrorInternal
	}
}

func httpStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryOperation:
		return http.StatusServiceUnavailable
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
