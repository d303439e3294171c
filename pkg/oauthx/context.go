package oauthx

import "context"

type ctxKey struct{}

// WithState attaches the logged-in session state to ctx for downstream
// handlers.
func WithState(ctx context.Context, state *State) context.Context {
	return context.WithValue(ctx, ctxKey{}, state)
}

// StateFromContext returns the logged-in state the middleware attached, or
// nil when the request did not pass through the middleware.
func StateFromContext(ctx context.Context) *State {
	state, _ := ctx.Value(ctxKey{}).(*State)
	return state
}
