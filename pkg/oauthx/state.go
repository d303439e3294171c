package oauthx

import "time"

// StateType tags the session sub-state variant.
type StateType string

const (
	// StateInitial marks a handshake that has issued a CSRF state and PKCE
	// verifier but not yet completed the callback.
	StateInitial StateType = "initial"

	// StateLoggedIn marks a completed handshake holding tokens.
	StateLoggedIn StateType = "logged_in"
)

// State is the OAuth2 sub-state stored in the session. Exactly one variant
// is ever present: Initial fields are populated before login completes,
// LoggedIn fields after. Absence of a State means unauthenticated.
type State struct {
	Type StateType `json:"type"`

	// Initial fields.

	// State is the CSRF nonce echoed back by the provider.
	State string `json:"state,omitempty"`

	// CodeVerifier is the PKCE verifier for the pending exchange.
	CodeVerifier string `json:"code_verifier,omitempty"`

	// LoggedIn fields. Timestamps are unix milliseconds.

	// Created is when the login completed.
	Created int64 `json:"created,omitempty"`

	// TokenCreated is when the current token pair was issued; updated in
	// place on refresh.
	TokenCreated int64 `json:"token_created,omitempty"`

	Token        string `json:"token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`

	// Email decoded from the access token, for display/record purposes.
	Email string `json:"email,omitempty"`
}

// TokenAge returns how old the current token pair is.
func (s *State) TokenAge(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(s.TokenCreated))
}
