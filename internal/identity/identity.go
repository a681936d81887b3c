// Package identity carries the already-authenticated caller through a
// request context. Nothing here authenticates.
package identity

import (
	"context"
	"errors"
)

var ErrNoIdentity = errors.New("no user identity in context")

type contextKey struct{}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the caller's user ID, or ErrNoIdentity.
func UserID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(contextKey{}).(string)
	if !ok || id == "" {
		return "", ErrNoIdentity
	}
	return id, nil
}
