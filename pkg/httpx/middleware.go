// Package httpx is the request pipeline guarding protected endpoints:
// bearer-token user resolution, permission checks, object-bindings fetch,
// rate limiting, and small response helpers.
package httpx

import "net/http"

// Middleware wraps a handler with request pre/post processing.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares to h in order: the first listed is the outermost
// and runs first.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
