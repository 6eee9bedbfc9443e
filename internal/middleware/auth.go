package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/BaGreal2/yamdb-server/internal/apperror"
	"github.com/BaGreal2/yamdb-server/internal/auth"
	"github.com/BaGreal2/yamdb-server/internal/httputil"
	"github.com/BaGreal2/yamdb-server/internal/model"
	"github.com/BaGreal2/yamdb-server/internal/permission"
)

type actorKey struct{}

type UserLoader interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// ActorFrom returns the authenticated actor, or nil for anonymous requests.
func ActorFrom(ctx context.Context) *permission.Actor {
	actor, _ := ctx.Value(actorKey{}).(*permission.Actor)
	return actor
}

func WithActor(ctx context.Context, actor *permission.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// Authenticate resolves an optional bearer token into an actor. Requests
// without an Authorization header continue as anonymous; a header that does
// not verify is rejected with 401.
func Authenticate(tokens *auth.Tokens, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(authHeader, "Bearer ") {
				httputil.WriteError(w, r, apperror.Unauthorized("authorization header must use the Bearer scheme"))
				return
			}

			claims, err := tokens.Parse(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				httputil.LogEntry(r.Context()).WithError(err).Debug("token rejected")
				httputil.WriteError(w, r, apperror.Unauthorized("given token not valid"))
				return
			}

			user, err := users.GetUserByID(r.Context(), claims.UserID)
			if apperror.Is(err, apperror.KindNotFound) {
				httputil.WriteError(w, r, apperror.Unauthorized("user not found"))
				return
			}
			if err != nil {
				httputil.WriteError(w, r, err)
				return
			}

			ctx := WithActor(r.Context(), permission.NewActor(user))
			ctx = httputil.WithLogEntry(ctx, httputil.LogEntry(ctx).WithField("user", user.Username))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
