package session

import (
	"context"

	"memorylane.app/core/appview/models"
)

type ctxKey struct{}

func IntoContext(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal attached by the auth middleware,
// or nil for unauthenticated requests.
func FromContext(ctx context.Context) *models.Principal {
	if v := ctx.Value(ctxKey{}); v != nil {
		return v.(*models.Principal)
	}
	return nil
}
