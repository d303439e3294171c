// Package oauthx implements the OAuth2 authorization-code flow with PKCE
// against the remote identity provider.
//
// The package-level functions (CreateRandomKey, CreateKeyHash, LoginURL,
// LogoutURL, ExchangeCode, Refresh) are stateless protocol helpers. Handler
// layers a per-request state machine over them, persisting the handshake in
// a sessionx.Store: Unauthenticated requests are redirected to login,
// completed callbacks transition the session to logged in, and token pairs
// older than a day are refreshed in place.
package oauthx
