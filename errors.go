package campuslink

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies API failures. The SDK never retries on its own; retry
// is a user-initiated re-invocation of the same idempotent operation.
type ErrorKind string

const (
	// KindUnauthenticated: missing or expired credential. Callers should
	// redirect to sign-in rather than retry.
	KindUnauthenticated ErrorKind = "unauthenticated"
	// KindNotFound: the referenced user, conversation or message is absent.
	KindNotFound ErrorKind = "not_found"
	// KindValidationFailed: the request was rejected before any network call.
	KindValidationFailed ErrorKind = "validation_failed"
	// KindTransient: a network or server failure on an otherwise valid
	// request. Last-known-good state is retained by callers.
	KindTransient ErrorKind = "transient"
)

// APIError is the error type returned by every SDK operation that fails.
type APIError struct {
	Kind    ErrorKind
	Status  int // HTTP status, 0 when the request never reached the server
	Message string
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is makes APIError values of the same Kind match under errors.Is, so
// sentinels like ErrNoCredentials can stand in for any unauthenticated error.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// ErrNoCredentials is returned when an operation requires a bearer token and
// current-user id and neither is set.
var ErrNoCredentials = &APIError{Kind: KindUnauthenticated, Message: "missing bearer credential"}

func newValidationError(msg string) *APIError {
	return &APIError{Kind: KindValidationFailed, Message: msg}
}

func newTransientError(msg string, err error) *APIError {
	return &APIError{Kind: KindTransient, Message: fmt.Sprintf("%s: %v", msg, err)}
}

// kindForStatus maps an HTTP status code onto the error taxonomy.
func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthenticated
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidationFailed
	default:
		return KindTransient
	}
}

// ErrorIsKind reports whether err is an APIError of the given kind.
func ErrorIsKind(err error, kind ErrorKind) bool {
	var e *APIError
	return errors.As(err, &e) && e.Kind == kind
}

func IsUnauthenticated(err error) bool { return ErrorIsKind(err, KindUnauthenticated) }
func IsNotFound(err error) bool        { return ErrorIsKind(err, KindNotFound) }
func IsValidation(err error) bool      { return ErrorIsKind(err, KindValidationFailed) }
func IsTransient(err error) bool       { return ErrorIsKind(err, KindTransient) }
