package oauthx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/simpleviewinc/sv-auth-client/pkg/jwtx"
	"github.com/simpleviewinc/sv-auth-client/pkg/sessionx"
)

// Defaults for Config fields left zero.
const (
	DefaultCallbackPath = "/oauth2/callback/"
	DefaultLogoutPath   = "/logout/"
	DefaultSessionKey   = "oauth2"
	DefaultTokenMaxAge  = 24 * time.Hour
)

// Config wires a Handler to an identity provider and a session store.
type Config struct {
	// AuthURL is the identity provider base URL. Must match the
	// environment allow-list.
	AuthURL string

	// ClientID registered at the identity provider. Required.
	ClientID string

	// CallbackPath is the route handling the provider redirect back.
	CallbackPath string

	// LogoutPath is the route handling logout.
	LogoutPath string

	// SessionKey is the session slot holding the OAuth2 sub-state.
	SessionKey string

	// Sessions persists the handshake across the redirect round trip.
	// Required.
	Sessions sessionx.Store

	// Params derives extra provider parameters (product, account id)
	// from the incoming request. Optional.
	Params func(r *http.Request) map[string]any

	// AllowRedirect validates the caller-controlled redirectUrl on the
	// callback. Nil keeps the historical presence-only check; embedding
	// applications serving untrusted traffic should set it.
	AllowRedirect func(redirectURL string) bool

	// TokenMaxAge is how old a token pair may grow before the middleware
	// refreshes it in place.
	TokenMaxAge time.Duration

	// HTTPClient performs the token exchanges. Defaults to a client with
	// a 10 second timeout.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Handler drives the authorization-code handshake for session-based web
// applications: a middleware guarding protected routes, the provider
// callback, and logout.
type Handler struct {
	cfg Config
}

// NewHandler validates cfg and returns a Handler. The authUrl allow-list and
// the client_id requirement are enforced here, not at request time.
func NewHandler(cfg Config) (*Handler, error) {
	if err := ValidateAuthURL(cfg.AuthURL); err != nil {
		return nil, err
	}
	if cfg.ClientID == "" {
		return nil, errors.New("oauthx: client_id is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("oauthx: session store is required")
	}

	if cfg.CallbackPath == "" {
		cfg.CallbackPath = DefaultCallbackPath
	}
	if cfg.LogoutPath == "" {
		cfg.LogoutPath = DefaultLogoutPath
	}
	if cfg.SessionKey == "" {
		cfg.SessionKey = DefaultSessionKey
	}
	if cfg.TokenMaxAge <= 0 {
		cfg.TokenMaxAge = DefaultTokenMaxAge
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Handler{cfg: cfg}, nil
}

// Mount registers the callback and logout routes on mux.
func (h *Handler) Mount(mux *http.ServeMux) {
	mux.HandleFunc("GET "+h.cfg.CallbackPath, h.Callback)
	mux.HandleFunc("GET "+h.cfg.LogoutPath, h.Logout)
}

// Middleware guards protected routes. Unauthenticated GETs are redirected to
// the provider login; non-GETs fail instead, a redirect would lose the
// request body. Logged-in sessions older than TokenMaxAge are refreshed in
// place before the downstream handler runs.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := h.cfg.Sessions.Load(r)
		if err != nil {
			h.serverError(w, r, err)
			return
		}

		var state State
		ok, err := session.Get(h.cfg.SessionKey, &state)
		if err != nil {
			h.serverError(w, r, err)
			return
		}

		if !ok {
			if r.Method != http.MethodGet {
				writeAuthFailure(w, http.StatusUnauthorized, ErrNotAuthorized)
				return
			}
			h.beginLogin(w, r, session)
			return
		}

		switch state.Type {
		case StateInitial:
			// mid-handshake access to a protected resource
			writeAuthFailure(w, http.StatusUnauthorized, ErrInvalidSessionState)
			return
		case StateLoggedIn:
			if state.TokenAge(time.Now()) > h.cfg.TokenMaxAge {
				if err := h.refresh(w, r, session, &state); err != nil {
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithState(r.Context(), &state)))
		default:
			writeAuthFailure(w, http.StatusUnauthorized, ErrInvalidSessionState)
		}
	})
}

// beginLogin issues a fresh Initial state and redirects to the provider.
func (h *Handler) beginLogin(w http.ResponseWriter, r *http.Request, session *sessionx.Session) {
	state := State{
		Type:         StateInitial,
		State:        CreateRandomKey(),
		CodeVerifier: CreateRandomKey(),
	}

	if err := session.Set(h.cfg.SessionKey, state); err != nil {
		h.serverError(w, r, err)
		return
	}

	origin := requestOrigin(r)

	redirectURI := url.URL{Path: h.cfg.CallbackPath}
	redirectURI.RawQuery = url.Values{
		"redirectUrl": {origin + r.URL.RequestURI()},
	}.Encode()

	var params map[string]any
	if h.cfg.Params != nil {
		params = h.cfg.Params(r)
	}

	loginURL, err := LoginURL(LoginURLParams{
		AuthURL:      h.cfg.AuthURL,
		ClientID:     h.cfg.ClientID,
		RedirectURI:  origin + redirectURI.String(),
		Params:       params,
		State:        state.State,
		CodeVerifier: state.CodeVerifier,
	})
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	if err := h.cfg.Sessions.Save(w, r, session); err != nil {
		h.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, loginURL, http.StatusFound)
}

// refresh swaps the stored token pair for a fresh one. The error return only
// signals that a response was already written.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request, session *sessionx.Session, state *State) error {
	tokens, err := Refresh(r.Context(), h.cfg.HTTPClient, RefreshParams{
		AuthURL:      h.cfg.AuthURL,
		RefreshToken: state.RefreshToken,
	})
	if err != nil {
		h.cfg.Logger.Warn("token refresh failed", "err", err)
		writeAuthFailure(w, http.StatusUnauthorized, err)
		return err
	}

	state.Token = tokens.Token
	state.RefreshToken = tokens.RefreshToken
	state.TokenCreated = time.Now().UnixMilli()

	if err := session.Set(h.cfg.SessionKey, state); err != nil {
		h.serverError(w, r, err)
		return err
	}
	if err := h.cfg.Sessions.Save(w, r, session); err != nil {
		h.serverError(w, r, err)
		return err
	}

	return nil
}

// Callback handles the provider redirect back: CSRF state check, PKCE code
// exchange, and the transition to LoggedIn.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errCode := query.Get("error"); errCode != "" {
		writeAuthFailure(w, http.StatusUnauthorized, &ProviderError{
			Code:        errCode,
			Description: query.Get("error_description"),
		})
		return
	}

	session, err := h.cfg.Sessions.Load(r)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	var state State
	ok, err := session.Get(h.cfg.SessionKey, &state)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if !ok || state.State == "" || state.CodeVerifier == "" {
		writeAuthFailure(w, http.StatusUnauthorized, ErrMissingSession)
		return
	}

	if state.State != query.Get("state") {
		writeAuthFailure(w, http.StatusUnauthorized, ErrStateMismatch)
		return
	}

	code := query.Get("code")
	if code == "" {
		writeAuthFailure(w, http.StatusUnauthorized, ErrMissingCode)
		return
	}

	redirectURL := query.Get("redirectUrl")
	if redirectURL == "" {
		writeAuthFailure(w, http.StatusUnauthorized, ErrMissingRedirectURL)
		return
	}
	if h.cfg.AllowRedirect != nil && !h.cfg.AllowRedirect(redirectURL) {
		writeAuthFailure(w, http.StatusUnauthorized, ErrRedirectNotAllowed)
		return
	}

	// Rebuild the redirect_uri exactly as beginLogin constructed it; the
	// token exchange requires an exact match.
	redirectURI := url.URL{Path: r.URL.Path}
	redirectURI.RawQuery = url.Values{"redirectUrl": {redirectURL}}.Encode()

	tokens, err := ExchangeCode(r.Context(), h.cfg.HTTPClient, ExchangeCodeParams{
		AuthURL:      h.cfg.AuthURL,
		ClientID:     h.cfg.ClientID,
		RedirectURI:  requestOrigin(r) + redirectURI.String(),
		Code:         code,
		CodeVerifier: state.CodeVerifier,
	})
	if err != nil {
		h.cfg.Logger.Warn("code exchange failed", "err", err)
		writeAuthFailure(w, http.StatusUnauthorized, err)
		return
	}

	email := ""
	if claims, err := jwtx.DecodeUnverified(tokens.Token); err == nil {
		email = claims.Email
	} else {
		h.cfg.Logger.Warn("could not decode email claim", "err", err)
	}

	now := time.Now().UnixMilli()
	loggedIn := State{
		Type:         StateLoggedIn,
		Created:      now,
		TokenCreated: now,
		Token:        tokens.Token,
		RefreshToken: tokens.RefreshToken,
		Email:        email,
	}

	if err := session.Set(h.cfg.SessionKey, loggedIn); err != nil {
		h.serverError(w, r, err)
		return
	}
	if err := h.cfg.Sessions.Save(w, r, session); err != nil {
		h.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// Logout deletes the OAuth2 sub-state and sends the browser to the provider
// logout, which returns it to redirectUrl (default: the current origin).
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session, err := h.cfg.Sessions.Load(r)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	session.Delete(h.cfg.SessionKey)
	if err := h.cfg.Sessions.Save(w, r, session); err != nil {
		h.serverError(w, r, err)
		return
	}

	redirectURL := r.URL.Query().Get("redirectUrl")
	if redirectURL == "" {
		redirectURL = requestOrigin(r) + "/"
	}

	var params map[string]any
	if h.cfg.Params != nil {
		params = h.cfg.Params(r)
	}

	http.Redirect(w, r, LogoutURL(LogoutURLParams{
		AuthURL:     h.cfg.AuthURL,
		RedirectURI: redirectURL,
		Params:      params,
	}), http.StatusFound)
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.cfg.Logger.Error("oauth2 handler failed", "path", r.URL.Path, "err", err)
	writeAuthFailure(w, http.StatusInternalServerError, err)
}

// writeAuthFailure emits an RFC 6749 style JSON error body.
func writeAuthFailure(w http.ResponseWriter, status int, err error) {
	code := "access_denied"
	description := err.Error()

	var authErr *AuthError
	var providerErr *ProviderError
	switch {
	case errors.As(err, &authErr):
		code = authErr.Code
		description = authErr.Description
	case errors.As(err, &providerErr):
		code = providerErr.Code
		description = providerErr.Description
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}

// requestOrigin reconstructs scheme://host for the incoming request,
// honoring X-Forwarded-Proto from a fronting proxy.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme, _, _ = strings.Cut(proto, ",")
		scheme = strings.TrimSpace(scheme)
	} else if r.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + r.Host
}
