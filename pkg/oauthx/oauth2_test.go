package oauthx_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/simpleviewinc/sv-auth-client/pkg/oauthx"
	"github.com/stretchr/testify/require"
)

func TestCreateKeyHash(t *testing.T) {
	t.Parallel()

	// fixed SHA-256/base64 vector
	require.Equal(t, "n4bQgYhMfWWaL+qgxVrQFaO/TxsrC4Is0V1sFbDwCgg=", oauthx.CreateKeyHash("test"))
}

func TestCreateRandomKey(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool, 1000)
	for range 1000 {
		key := oauthx.CreateRandomKey()
		require.Len(t, key, 64)
		require.False(t, seen[key], "random keys must not collide")
		seen[key] = true
	}
}

func TestLoginURL(t *testing.T) {
	t.Parallel()

	result, err := oauthx.LoginURL(oauthx.LoginURLParams{
		AuthURL:      "https://auth.kube.simpleview.io/",
		ClientID:     "cms",
		RedirectURI:  "https://test.simpleviewcms.com/oauth2/callback/?redirectUrl=http%3A%2F%2Ftest.simpleviewcms.com%2F",
		State:        "teststate",
		CodeVerifier: "test",
		Params: map[string]any{
			"acct_id": 9132,
			"product": "cms",
		},
	})
	require.NoError(t, err)

	parsed, err := url.Parse(result)
	require.NoError(t, err)
	require.Equal(t, "https", parsed.Scheme)
	require.Equal(t, "auth.kube.simpleview.io", parsed.Host)
	require.Equal(t, "/oauth2/login/", parsed.Path)

	query := parsed.Query()
	require.Equal(t, "code", query.Get("response_type"))
	require.Equal(t, "S256", query.Get("code_challenge_method"))
	require.Equal(t, "cms", query.Get("client_id"))
	require.Equal(t, "https://test.simpleviewcms.com/oauth2/callback/?redirectUrl=http%3A%2F%2Ftest.simpleviewcms.com%2F", query.Get("redirect_uri"))
	require.Equal(t, "teststate", query.Get("state"))
	require.Equal(t, oauthx.CreateKeyHash("test"), query.Get("code_challenge"))

	var params map[string]any
	require.NoError(t, json.Unmarshal([]byte(query.Get("sv_auth_params")), &params))
	require.Equal(t, map[string]any{"acct_id": float64(9132), "product": "cms"}, params)
}

func TestLoginURLDeterministic(t *testing.T) {
	t.Parallel()

	params := oauthx.LoginURLParams{
		AuthURL:      "https://auth.kube.simpleview.io/",
		ClientID:     "cms",
		RedirectURI:  "https://test.simpleviewcms.com/oauth2/callback/",
		State:        "teststate",
		CodeVerifier: "test",
	}

	a, err := oauthx.LoginURL(params)
	require.NoError(t, err)
	b, err := oauthx.LoginURL(params)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestLogoutURL(t *testing.T) {
	t.Parallel()

	result := oauthx.LogoutURL(oauthx.LogoutURLParams{
		AuthURL:     "https://auth.kube.simpleview.io/",
		RedirectURI: "https://test.simpleviewcms.com/",
		Params: map[string]any{
			"product": "cms",
		},
	})

	parsed, err := url.Parse(result)
	require.NoError(t, err)
	require.Equal(t, "/logout/", parsed.Path)

	// extra params are flattened onto the query string, not JSON-encoded
	query := parsed.Query()
	require.Equal(t, "https://test.simpleviewcms.com/", query.Get("redirectUrl"))
	require.Equal(t, "cms", query.Get("product"))
}

// tokenServer stands in for the provider token endpoint. It records the last
// form it received.
func tokenServer(t *testing.T, status int, body map[string]string) (*httptest.Server, *url.Values) {
	t.Helper()

	var lastForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/oauth2/token/", r.URL.Path)
		require.Contains(t, r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")

		require.NoError(t, r.ParseForm())
		lastForm = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)

	return server, &lastForm
}

func TestExchangeCode(t *testing.T) {
	t.Parallel()

	server, form := tokenServer(t, http.StatusOK, map[string]string{
		"access_token":  "access0",
		"refresh_token": "refresh0",
	})

	tokens, err := oauthx.ExchangeCode(context.Background(), server.Client(), oauthx.ExchangeCodeParams{
		AuthURL:      server.URL + "/",
		ClientID:     "cms",
		RedirectURI:  "https://test.simpleviewcms.com/oauth2/callback/",
		Code:         "test_code",
		CodeVerifier: "test_verifier",
	})
	require.NoError(t, err)
	require.Equal(t, "access0", tokens.Token)
	require.Equal(t, "refresh0", tokens.RefreshToken)

	require.Equal(t, "authorization_code", form.Get("grant_type"))
	require.Equal(t, "cms", form.Get("client_id"))
	require.Equal(t, "https://test.simpleviewcms.com/oauth2/callback/", form.Get("redirect_uri"))
	require.Equal(t, "test_code", form.Get("code"))
	require.Equal(t, "test_verifier", form.Get("code_verifier"))
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	server, form := tokenServer(t, http.StatusOK, map[string]string{
		"access_token":  "access1",
		"refresh_token": "refresh1",
	})

	tokens, err := oauthx.Refresh(context.Background(), server.Client(), oauthx.RefreshParams{
		AuthURL:      server.URL + "/",
		RefreshToken: "refresh0",
	})
	require.NoError(t, err)
	require.Equal(t, "access1", tokens.Token)
	require.Equal(t, "refresh1", tokens.RefreshToken)

	require.Equal(t, "refresh_token", form.Get("grant_type"))
	require.Equal(t, "refresh0", form.Get("refresh_token"))
}

func TestExchangeCodeSurfacesRemoteError(t *testing.T) {
	t.Parallel()

	server, _ := tokenServer(t, http.StatusBadRequest, map[string]string{
		"error":             "invalid_grant",
		"error_description": "code expired",
	})

	_, err := oauthx.ExchangeCode(context.Background(), server.Client(), oauthx.ExchangeCodeParams{
		AuthURL: server.URL + "/",
		Code:    "stale",
	})

	var authErr *oauthx.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, "invalid_grant", authErr.Code)
	require.Equal(t, "code expired", authErr.Description)
	require.Equal(t, "auth error: invalid_grant, code expired", authErr.Error())
}

func TestValidateAuthURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		authURL string
		wantErr bool
	}{
		{name: "live", authURL: "https://auth.simpleviewinc.com/", wantErr: false},
		{name: "dev", authURL: "https://auth.dev.simpleviewinc.com/", wantErr: false},
		{name: "qa", authURL: "https://auth.qa.simpleviewinc.com/", wantErr: false},
		{name: "kube", authURL: "https://auth.kube.simpleview.io/", wantErr: false},
		{name: "cluster local", authURL: "http://feature-branch.ui-service.default.svc.cluster.local/", wantErr: false},
		{name: "unknown host", authURL: "https://auth.invalid.simpleviewinc.com/", wantErr: true},
		{name: "missing trailing slash", authURL: "https://auth.simpleviewinc.com", wantErr: true},
		{name: "empty", authURL: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := oauthx.ValidateAuthURL(tt.authURL)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
