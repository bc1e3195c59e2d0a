package transport

import (
	"encoding/json"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/vitrinehq/go-storefront/core"
)

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return transportError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.ErrorBadInput
	case goerrors.CategoryExternal:
		return core.ErrorTransportFailure
	default:
		return core.ErrorInternal
	}
}

// statusError converts a non-2xx response into the single uniform error
// shape: status code, status text, and the parsed-or-raw body in metadata.
// The category tracks the status class but the text code is always
// core.ErrorHTTPStatus; callers are not expected to branch on 4xx vs 5xx.
func statusError(res core.APIResponse, method string, target string) error {
	var body any
	if res.JSON && len(res.Body) > 0 {
		var decoded any
		if json.Unmarshal(res.Body, &decoded) == nil {
			body = decoded
		}
	}
	if body == nil && len(res.Body) > 0 {
		body = string(res.Body)
	}

	message := strings.TrimSpace(res.Status)
	if message == "" {
		message = http.StatusText(res.StatusCode)
	}
	err := goerrors.New("transport: "+message, statusCategory(res.StatusCode)).
		WithCode(res.StatusCode).
		WithTextCode(core.ErrorHTTPStatus)
	err.WithMetadata(map[string]any{
		"method":      method,
		"url":         target,
		"status_code": res.StatusCode,
		"status_text": res.Status,
		"body":        body,
	})
	return err
}

func statusCategory(statusCode int) goerrors.Category {
	switch {
	case statusCode == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case statusCode == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case statusCode == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case statusCode == http.StatusConflict:
		return goerrors.CategoryConflict
	case statusCode == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case statusCode >= 400 && statusCode < 500:
		return goerrors.CategoryBadInput
	default:
		return goerrors.CategoryExternal
	}
}

// IsStatusError reports whether err is the uniform HTTP status error.
func IsStatusError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == core.ErrorHTTPStatus
}

// IsTransportFailure reports whether err never produced a status code:
// unreachable host, cancelled context, truncated response.
func IsTransportFailure(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == core.ErrorTransportFailure
}

// StatusCode extracts the HTTP status from a status error; zero otherwise.
func StatusCode(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return 0
	}
	if richErr.TextCode != core.ErrorHTTPStatus {
		return 0
	}
	return richErr.Code
}

// ErrorBody returns the decoded (or raw) response body attached to a status
// error, or nil.
func ErrorBody(err error) any {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return nil
	}
	return richErr.Metadata["body"]
}
