package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/auth"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/repository"
)

type userKey struct{}

// ResolveUser loads the user behind the token ID that auth.RequireAuth or
// auth.OptionalAuth stored in the context, once per request. A token for a
// deleted account is answered with 404. Anonymous requests pass through.
func ResolveUser(users repository.UserRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetByID(r.Context(), id)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					logger.Warn("token for unknown user", slog.String("user_id", id))
				}
				writeError(w, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

func withUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// CurrentUser returns the user resolved for this request, or nil.
func CurrentUser(ctx context.Context) *model.User {
	u, _ := ctx.Value(userKey{}).(*model.User)
	return u
}
