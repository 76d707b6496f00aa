// Package errors defines the failure taxonomy shared by every public
// operation of the client. Operations never panic across their boundary;
// they return a *ClientError tagged with a Kind so callers can branch on
// the failure class without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a client failure.
type Kind string

const (
	// KindNetwork covers unreachable hosts, DNS failures and broken
	// connections before a response arrives.
	KindNetwork Kind = "network"
	// KindTimeout is an elapsed request deadline; the in-flight request
	// is cancelled.
	KindTimeout Kind = "timeout"
	// KindInvalidResponse is a response the client cannot interpret
	// (non-JSON body, unexpected content).
	KindInvalidResponse Kind = "invalid_response"
	// KindServer is a non-2xx status from the backend.
	KindServer Kind = "server"
	// KindApplication is a 2xx response whose success flag is false.
	KindApplication Kind = "application"
	// KindUnauthenticated is an upload attempted without a bearer token.
	KindUnauthenticated Kind = "unauthenticated"
	// KindEncoding is an unreadable or undecodable image resource.
	KindEncoding Kind = "encoding"
	// KindInternal is an unexpected condition recovered at the call
	// boundary.
	KindInternal Kind = "internal"
)

// ClientError is a tagged failure result.
type ClientError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// New creates a ClientError with the given kind and message.
func New(kind Kind, message string, cause error) *ClientError {
	return &ClientError{Kind: kind, Message: message, Cause: cause}
}

// Newf creates a ClientError with a formatted message and no cause.
func Newf(kind Kind, format string, args ...any) *ClientError {
	return &ClientError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewNetworkError creates a network failure.
func NewNetworkError(message string, cause error) *ClientError {
	return New(KindNetwork, message, cause)
}

// NewTimeoutError creates a timeout failure.
func NewTimeoutError(message string, cause error) *ClientError {
	return New(KindTimeout, message, cause)
}

// NewInvalidResponseError creates an uninterpretable-response failure.
func NewInvalidResponseError(message string, cause error) *ClientError {
	return New(KindInvalidResponse, message, cause)
}

// NewServerError creates a non-2xx failure carrying the server message.
func NewServerError(message string, cause error) *ClientError {
	return New(KindServer, message, cause)
}

// NewApplicationError creates a success-flag-false failure.
func NewApplicationError(message string) *ClientError {
	return New(KindApplication, message, nil)
}

// NewUnauthenticatedError creates a missing-token failure.
func NewUnauthenticatedError(message string) *ClientError {
	return New(KindUnauthenticated, message, nil)
}

// NewEncodingError creates an unreadable-image failure.
func NewEncodingError(message string, cause error) *ClientError {
	return New(KindEncoding, message, cause)
}

// NewInternalError creates a recovered unexpected failure.
func NewInternalError(message string, cause error) *ClientError {
	return New(KindInternal, message, cause)
}

// IsKind reports whether err is a ClientError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}
