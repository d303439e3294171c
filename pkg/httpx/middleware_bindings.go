package httpx

import (
	"context"
	"net/http"

	"github.com/simpleviewinc/sv-auth-client/pkg/graph"
	"github.com/simpleviewinc/sv-auth-client/pkg/slogx"
)

// BindingsHeader lets a caller scope the bindings lookup; it is the only
// request header forwarded to the identity service.
const BindingsHeader = "x-sv-object-bindings"

// BindingsFetcher fetches the caller's object bindings. graph.Client
// implements it.
type BindingsFetcher interface {
	ObjectBindingsMine(ctx context.Context, token, acctID string, filter graph.BindingsFilter, headers map[string]string) (*graph.BindingsResult, error)
}

// RequireBindings fetches the caller's object bindings for the given filter
// and attaches them to the resolved user, making CanIDs meaningful downstream.
// Must run after ResolveUser.
func RequireBindings(fetcher BindingsFetcher, filter graph.BindingsFilter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			user := UserFromContext(ctx)
			if user == nil {
				writeDenied(w, http.StatusUnauthorized, msgNotAuthorized)
				return
			}

			headers := map[string]string{}
			if value := r.Header.Get(BindingsHeader); value != "" {
				headers[BindingsHeader] = value
			}

			result, err := fetcher.ObjectBindingsMine(ctx, TokenFromContext(ctx), user.AcctID, filter, headers)
			if err != nil {
				log.Error("bindings fetch failed", "err", err)
				writeDenied(w, http.StatusInternalServerError, msgBindingsFetchFail)
				return
			}
			if !result.Success {
				writeDenied(w, http.StatusForbidden, msgBindingsFetchFail)
				return
			}

			user.SetBindings(result.Obj)

			next.ServeHTTP(w, r)
		})
	}
}
