// Package reqctx threads the per-request AuthResult, AWS session, and
// metadata through context.Context, per spec.md §3.2's RequestContext:
// scoped to one tool invocation, visible to any subtasks it spawns, never
// visible across concurrent requests.
package reqctx

import (
	"context"

	"github.com/quiltdata/quilt-mcp-server/internal/apperr"
	"github.com/quiltdata/quilt-mcp-server/internal/awssession"
	"github.com/quiltdata/quilt-mcp-server/internal/jwtauth"
)

type contextKey struct{}

// State is the request-scoped bundle carried in context for the lifetime of
// one tool invocation.
type State struct {
	Auth     *jwtauth.AuthResult
	Session  *awssession.Session
	Metadata map[string]any
}

// WithState attaches State to ctx, returning a derived context.
func WithState(ctx context.Context, state *State) context.Context {
	return context.WithValue(ctx, contextKey{}, state)
}

// FromContext retrieves the State attached by WithState, if any.
func FromContext(ctx context.Context) (*State, bool) {
	state, ok := ctx.Value(contextKey{}).(*State)
	return state, ok
}

// MustFromContext retrieves the State or returns an internal_error; every
// tool handler calls this first since dispatch always attaches State before
// invoking a handler.
func MustFromContext(ctx context.Context) (*State, error) {
	state, ok := FromContext(ctx)
	if !ok {
		return nil, apperr.Internalf("request context missing authenticated state")
	}
	return state, nil
}
