package oauthx

import (
	"errors"
	"fmt"
)

// Handshake errors surfaced to callers as authorization failures.
var (
	// ErrNotAuthorized reports a protected resource hit without a usable
	// session.
	ErrNotAuthorized = errors.New("oauthx: user is not authorized to access this resource")

	// ErrInvalidSessionState reports a protected resource hit while the
	// session is still mid-handshake.
	ErrInvalidSessionState = errors.New("oauthx: invalid session state")

	// ErrMissingSession reports a callback with no handshake state stored.
	ErrMissingSession = errors.New("oauthx: session does not exist")

	// ErrStateMismatch reports a callback whose state parameter does not
	// match the stored CSRF nonce.
	ErrStateMismatch = errors.New("oauthx: state returned does not match stored state")

	// ErrMissingCode reports a callback with no code parameter.
	ErrMissingCode = errors.New("oauthx: no code is present on the query string")

	// ErrMissingRedirectURL reports a callback with no redirectUrl
	// parameter.
	ErrMissingRedirectURL = errors.New("oauthx: no redirectUrl is present on the query string")

	// ErrRedirectNotAllowed reports a callback redirectUrl rejected by the
	// configured allow-list.
	ErrRedirectNotAllowed = errors.New("oauthx: redirectUrl is not allowed")
)

// AuthError is the error payload the identity provider returned from a token
// exchange, per RFC 6749.
type AuthError struct {
	// Code is the OAuth2 error code, e.g. "invalid_grant".
	Code string

	// Description is the optional human-readable error_description.
	Description string
}

func (e *AuthError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("auth error: %s", e.Code)
	}
	return fmt.Sprintf("auth error: %s, %s", e.Code, e.Description)
}

// ProviderError is an error the identity provider reported on the callback
// query string instead of issuing a code.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}
