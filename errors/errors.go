package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies failures so callers can branch on the category
// without string matching.
type Kind string

const (
	KindInvalidInput     Kind = "invalid_input"
	KindNotFound         Kind = "not_found"
	KindInternal         Kind = "internal"
	KindNoTranscript     Kind = "no_transcript"
	KindTimeout          Kind = "timeout"
	KindAllMethodsFailed Kind = "all_methods_failed"
	KindModelQuota       Kind = "model_quota"
	KindModelRequest     Kind = "model_request"
	KindNoAPIKey         Kind = "no_api_key"
	KindTranscriptShort  Kind = "transcript_too_short"
	KindTabLoadTimeout   Kind = "tab_load_timeout"
)

type AppError struct {
	Kind    Kind   `json:"-"`
	Code    int    `json:"-"`
	Message string `json:"error"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func InvalidInput(op string, err error, message string) *AppError {
	return &AppError{
		Kind:    KindInvalidInput,
		Code:    http.StatusBadRequest,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func NotFound(op string, err error, message string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Code:    http.StatusNotFound,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func Internal(op string, err error, message string) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Code:    http.StatusInternalServerError,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// NoTranscript reports that an extraction path found no transcript data.
func NoTranscript(op string, message string) *AppError {
	return &AppError{
		Kind:    KindNoTranscript,
		Code:    http.StatusNotFound,
		Message: message,
		Op:      op,
	}
}

// Timeout reports a network or message deadline that elapsed. The underlying
// operation is aborted, not merely abandoned.
func Timeout(op string, err error, message string) *AppError {
	return &AppError{
		Kind:    KindTimeout,
		Code:    http.StatusGatewayTimeout,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// AllMethodsFailed aggregates every branch failure of a race group into one
// error. It is only produced once all branches have failed.
func AllMethodsFailed(op string, reasons []error) *AppError {
	msgs := make([]string, 0, len(reasons))
	for _, r := range reasons {
		if r != nil {
			msgs = append(msgs, r.Error())
		}
	}
	return &AppError{
		Kind:    KindAllMethodsFailed,
		Code:    http.StatusBadGateway,
		Message: "all methods failed: " + strings.Join(msgs, "; "),
		Op:      op,
	}
}

// ModelQuota marks a 429-style quota response. It is an ordinary model
// failure that triggers fallback, never a terminal error on its own.
func ModelQuota(op string, model string) *AppError {
	return &AppError{
		Kind:    KindModelQuota,
		Code:    http.StatusTooManyRequests,
		Message: fmt.Sprintf("model %s quota exceeded", model),
		Op:      op,
	}
}

func ModelRequest(op string, model string, status int, body string) *AppError {
	if len(body) > 256 {
		body = body[:256]
	}
	return &AppError{
		Kind:    KindModelRequest,
		Code:    http.StatusBadGateway,
		Message: fmt.Sprintf("model %s request failed with status %d: %s", model, status, body),
		Op:      op,
	}
}

func NoAPIKey(op string) *AppError {
	return &AppError{
		Kind:    KindNoAPIKey,
		Code:    http.StatusPreconditionFailed,
		Message: "no API key configured",
		Op:      op,
	}
}

func TranscriptTooShort(op string) *AppError {
	return &AppError{
		Kind:    KindTranscriptShort,
		Code:    http.StatusBadRequest,
		Message: "transcript too short to summarize",
		Op:      op,
	}
}

func TabLoadTimeout(op string, err error) *AppError {
	return &AppError{
		Kind:    KindTabLoadTimeout,
		Code:    http.StatusGatewayTimeout,
		Message: "background tab did not finish loading",
		Op:      op,
		Err:     err,
	}
}

// KindOf returns the Kind of err if it is (or wraps) an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func IsTimeout(err error) bool {
	k := KindOf(err)
	return k == KindTimeout || k == KindTabLoadTimeout
}

func IsQuota(err error) bool {
	return KindOf(err) == KindModelQuota
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
