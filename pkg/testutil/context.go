package testutil

import (
	"context"
	"net/http"
	"time"

	"luckdraw/pkg/domain"
	"luckdraw/pkg/requestcontext"
)

// WithPrincipal adds a principal id to the request context, simulating what
// the auth middleware does for authenticated requests.
func WithPrincipal(req *http.Request, principalID domain.PrincipalID) *http.Request {
	return req.WithContext(requestcontext.WithPrincipalID(req.Context(), principalID))
}

// CtxWithPrincipal returns a background context carrying the principal id.
func CtxWithPrincipal(principalID domain.PrincipalID) context.Context {
	return requestcontext.WithPrincipalID(context.Background(), principalID)
}

// CtxAt returns a background context whose pinned request time is now.
// Services read time through the context, so tests control the clock here.
func CtxAt(now time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), now)
}
