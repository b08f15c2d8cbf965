package sessionx

import "context"

type stateKey struct{}

// BindState stores a session snapshot inside the context for downstream consumers.
func BindState(ctx context.Context, state State) context.Context {
	return context.WithValue(ctx, stateKey{}, state.clone())
}

// StateFromContext retrieves a snapshot previously stored with BindState.
func StateFromContext(ctx context.Context) (State, bool) {
	if ctx == nil {
		return State{}, false
	}
	value := ctx.Value(stateKey{})
	if value == nil {
		return State{}, false
	}
	state, ok := value.(State)
	return state, ok
}

// IdentityFromContext returns the identity of an authenticated snapshot in ctx.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	state, ok := StateFromContext(ctx)
	if !ok || !state.IsAuthenticated || state.Identity == nil {
		return nil, false
	}
	return state.Identity.Clone(), true
}
