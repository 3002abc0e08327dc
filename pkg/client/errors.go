package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind classifies a failed call. Callers branch on Kind (or use errors.Is
// with the sentinel errors below) rather than on concrete error types.
type Kind int

const (
	// KindUnknown is reported by KindOf for errors that did not come from the
	// transport, e.g. ErrMissingArgument.
	KindUnknown Kind = iota
	// KindAPI is any status >= 400 without a more specific kind.
	KindAPI
	KindAuthentication // 401, 403
	KindNotFound       // 404
	KindValidation     // 422
	KindRateLimit      // 429
	// KindTimeout means the per-call deadline expired and the request was aborted.
	KindTimeout
	// KindNetwork covers DNS failures, refused or reset connections, and
	// caller cancellation.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindAPI:
		return "api_error"
	case KindAuthentication:
		return "authentication_error"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation_error"
	case KindRateLimit:
		return "rate_limit"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network_error"
	default:
		return "unknown"
	}
}

// kindForStatus maps an HTTP status >= 400 to its error kind.
func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuthentication
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusTooManyRequests:
		return KindRateLimit
	default:
		return KindAPI
	}
}

// ErrorBody is the decoded JSON body of a failed response. It is empty (never
// nil) when the body was missing or not a JSON object.
type ErrorBody map[string]any

// ErrorText returns the "error" field when it is a non-empty string.
func (b ErrorBody) ErrorText() string {
	s, _ := b["error"].(string)
	return s
}

// Detail returns the "detail" field. Non-string details (FastAPI returns a
// list of field errors on 422) are rendered as compact JSON.
func (b ErrorBody) Detail() string {
	switch d := b["detail"].(type) {
	case nil:
		return ""
	case string:
		return d
	default:
		raw, err := json.Marshal(d)
		if err != nil {
			return fmt.Sprint(d)
		}
		return string(raw)
	}
}

// Error is returned by every Client method when the call fails at the
// transport or HTTP level.
type Error struct {
	Kind    Kind
	Status  int    // 0 for timeout and network errors
	Message string // error, then detail, then the HTTP status text
	Body    ErrorBody
	// Err is the underlying cause for timeout and network errors.
	Err error

	sentinel bool
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("agentwallet: %s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("agentwallet: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the package sentinels by kind, so errors.Is(err, ErrNotFound)
// holds for any 404.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || !t.sentinel {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is. They are never returned directly.
var (
	ErrAPI            = &Error{Kind: KindAPI, Message: "api error", sentinel: true}
	ErrAuthentication = &Error{Kind: KindAuthentication, Message: "authentication failed", sentinel: true}
	ErrNotFound       = &Error{Kind: KindNotFound, Message: "not found", sentinel: true}
	ErrValidation     = &Error{Kind: KindValidation, Message: "validation failed", sentinel: true}
	ErrRateLimit      = &Error{Kind: KindRateLimit, Message: "rate limited", sentinel: true}
	ErrTimeout        = &Error{Kind: KindTimeout, Message: "timed out", sentinel: true}
	ErrNetwork        = &Error{Kind: KindNetwork, Message: "network error", sentinel: true}
)

// ErrMissingArgument is returned before any request is made when a required
// identifier or field is empty.
var ErrMissingArgument = errors.New("agentwallet: missing required argument")

func missing(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingArgument, name)
}

// KindOf returns the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// newHTTPError builds the error for a response with status >= 400.
func newHTTPError(status int, statusText string, raw []byte) *Error {
	body := ErrorBody{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil || body == nil {
			body = ErrorBody{}
		}
	}

	msg := body.ErrorText()
	if msg == "" {
		msg = body.Detail()
	}
	if msg == "" {
		msg = statusText
	}
	return &Error{
		Kind:    kindForStatus(status),
		Status:  status,
		Message: msg,
		Body:    body,
	}
}

// statusText strips the numeric code from resp.Status ("404 Not Found").
func statusText(resp *http.Response) string {
	if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// transportError classifies a failure that produced no HTTP response.
// ctx is the per-call context carrying the deadline.
func transportError(ctx context.Context, err error) *Error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindTimeout, Message: "request timed out", Body: ErrorBody{}, Err: err}
	}
	return &Error{Kind: KindNetwork, Message: err.Error(), Body: ErrorBody{}, Err: err}
}
