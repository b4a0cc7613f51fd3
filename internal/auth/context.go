package auth

import (
	"context"

	"github.com/debemdeboas/the-press/internal/model"
)

type userIDKey struct{}

// ContextWithUserID marks ctx as carrying a verified credential for userID.
// Providers set it in their middleware; ResolveSession reads it back.
func ContextWithUserID(ctx context.Context, userID model.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func UserIDFromContext(ctx context.Context) (model.UserID, bool) {
	if ctx == nil {
		return "", false
	}
	userID, ok := ctx.Value(userIDKey{}).(model.UserID)
	return userID, ok && userID != ""
}
