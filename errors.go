package greenauth

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of failure classes surfaced by the engine. Every
// error crossing the public API carries exactly one Kind.
type Kind uint8

const (
	// KindUnknown is an exported constant or variable used by the authentication engine.
	KindUnknown Kind = iota
	// KindValidation is an exported constant or variable used by the authentication engine.
	KindValidation
	// KindUnauthorized is an exported constant or variable used by the authentication engine.
	KindUnauthorized
	// KindForbidden is an exported constant or variable used by the authentication engine.
	KindForbidden
	// KindNotFound is an exported constant or variable used by the authentication engine.
	KindNotFound
	// KindConflict is an exported constant or variable used by the authentication engine.
	KindConflict
	// KindInternal is an exported constant or variable used by the authentication engine.
	KindInternal
)

// HTTPStatus maps the kind onto its transport status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the tagged-variant error type used across the engine: a kind for
// transport mapping plus a message/description pair for the response
// envelope. The description is generic by design — token expiry, forgery,
// and reuse are indistinguishable to clients.
type Error struct {
	Kind        Kind
	Message     string
	Description string
}

func (e *Error) Error() string {
	return e.Message + ": " + e.Description
}

var (
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Message: "Authentication Error", Description: "Invalid email or password"}
	// ErrUnauthorized is an exported constant or variable used by the authentication engine.
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "Unauthorized", Description: "Missing, invalid, or revoked token"}
	// ErrForbidden is an exported constant or variable used by the authentication engine.
	ErrForbidden = &Error{Kind: KindForbidden, Message: "Need Permission", Description: "Insufficient permissions"}
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = &Error{Kind: KindNotFound, Message: "User Not Found", Description: "No user with that identifier"}
	// ErrConflict is an exported constant or variable used by the authentication engine.
	ErrConflict = &Error{Kind: KindConflict, Message: "Already exists", Description: "The resource you are trying to create already exists"}
	// ErrSessionUnavailable is an exported constant or variable used by the authentication engine.
	ErrSessionUnavailable = &Error{Kind: KindInternal, Message: "Session Error", Description: "Session store unavailable"}
	// ErrDirectoryUnavailable is an exported constant or variable used by the authentication engine.
	ErrDirectoryUnavailable = &Error{Kind: KindInternal, Message: "Directory Error", Description: "User directory unavailable"}
	// ErrTokenSigning is an exported constant or variable used by the authentication engine.
	ErrTokenSigning = &Error{Kind: KindInternal, Message: "Token Error", Description: "Token signing failed"}
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = &Error{Kind: KindInternal, Message: "Engine Error", Description: "Engine not initialized"}
)

// ValidationError builds a KindValidation error with a caller-facing
// description. Unlike token failures, validation descriptions are specific:
// the caller sent the input and may see what was wrong with it.
func ValidationError(description string) *Error {
	return &Error{Kind: KindValidation, Message: "Validation Error", Description: description}
}

// KindOf extracts the failure class from any error produced by the engine.
// Errors from outside the taxonomy report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// EnvelopeOf extracts the tagged error for response rendering, or nil when
// err is outside the taxonomy.
func EnvelopeOf(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

func wrapErr(sentinel *Error, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %v", sentinel, cause)
}
