package httpx

import (
	"net/http"

	"github.com/simpleviewinc/sv-auth-client/pkg/authclient"
	"github.com/simpleviewinc/sv-auth-client/pkg/slogx"
)

// Messages match the historical responses downstream tooling matches on.
const (
	msgNotAuthorized     = "User is not authorized to access this resource."
	msgNotSuperuser      = "User is not authorized to access this resource (ERR: 1005)."
	msgMissingPerms      = "User is not authorized to access this resource (ERR: 1006)."
	msgBindingsFetchFail = "Unable to retrieve user bindings."
)

// AcctIDFunc derives the account scope for a request, typically from a path
// segment or a fixed deployment value.
type AcctIDFunc func(r *http.Request) string

// ResolveUser authenticates the request: it extracts the bearer token,
// resolves it through the cache, and injects the resulting user into the
// request context. Requests without a token, or with a token the directory
// rejects, are denied.
func ResolveUser(client *authclient.AuthClient, acctID AcctIDFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			token := BearerToken(r)
			if token == "" {
				writeDenied(w, http.StatusUnauthorized, msgNotAuthorized)
				return
			}

			user, err := client.GetUser(ctx, authclient.GetUserParams{
				Token:   token,
				AcctID:  acctID(r),
				Headers: r.Header,
			})
			if err != nil {
				log.Error("user resolution failed", "err", err)
				writeDenied(w, http.StatusInternalServerError, "Unable to resolve user.")
				return
			}
			if user == nil {
				writeDenied(w, http.StatusUnauthorized, msgNotAuthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user, token)))
		})
	}
}

// RequireSuperuser denies callers whose resolved identity is not a superuser.
// Must run after ResolveUser.
func RequireSuperuser() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil || !user.Superuser {
				writeDenied(w, http.StatusForbidden, msgNotSuperuser)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequirePerms denies callers missing any of the given permission paths.
// Must run after ResolveUser.
func RequirePerms(perms ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil || !user.Can(perms) {
				writeDenied(w, http.StatusForbidden, msgMissingPerms)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
