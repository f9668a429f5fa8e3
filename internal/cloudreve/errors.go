// Package cloudreve provides an HTTP client for the Cloudreve V4 API:
// envelope decoding, bearer authentication, session refresh, and typed
// bindings for the file and workflow endpoints.
package cloudreve

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is(err, cloudreve.ErrNotFound) to check.
var (
	ErrUnauthorized   = errors.New("cloudreve: unauthorized")
	ErrForbidden      = errors.New("cloudreve: forbidden")
	ErrNotFound       = errors.New("cloudreve: not found")
	ErrBadCredentials = errors.New("cloudreve: invalid credentials")

	ErrNotLoggedIn    = errors.New("cloudreve: not logged in")
	ErrNoRefreshToken = errors.New("cloudreve: no refresh token available")
	ErrMissingToken   = errors.New("cloudreve: response carries no token")
	ErrNoSource       = errors.New("cloudreve: no file source found")
)

// Backend error codes with a known meaning. Cloudreve reuses HTTP-like
// numbers for generic failures and five-digit codes for domain failures.
const (
	codeSuccess           = 0
	codeCheckLogin        = 401
	codeNoPermission      = 403
	codeNotFound          = 404
	codeParentNotExist    = 40016
	codeCredentialInvalid = 40020
)

// APIError is a well-formed envelope whose code is non-zero.
type APIError struct {
	Code       int
	Msg        string
	StatusCode int
	Err        error // sentinel, for errors.Is(); nil for unclassified codes
}

func (e *APIError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("cloudreve: API error %d", e.Code)
	}

	return fmt.Sprintf("cloudreve: API error %d: %s", e.Code, e.Msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// TransportError covers network failures and non-2xx responses whose body is
// not an envelope.
type TransportError struct {
	StatusCode int    // 0 for network failures
	Body       string // raw body, for diagnostics
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cloudreve: transport: %v", e.Err)
	}

	return fmt.Sprintf("cloudreve: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is a 2xx response that does not match the expected schema.
type ProtocolError struct {
	Body string
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("cloudreve: unexpected response: %v: %s", e.Err, e.Body)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// classifyCode maps a backend error code to a sentinel error.
// Returns nil for success and for codes without a dedicated sentinel.
func classifyCode(code int) error {
	switch code {
	case codeCheckLogin:
		return ErrUnauthorized
	case codeNoPermission:
		return ErrForbidden
	case codeNotFound, codeParentNotExist:
		return ErrNotFound
	case codeCredentialInvalid:
		return ErrBadCredentials
	default:
		return nil
	}
}
