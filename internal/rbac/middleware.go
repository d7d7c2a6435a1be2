package rbac

import (
	"log/slog"
	"net/http"

	"github.com/Ezrah1/orlando/internal/platform/httpx"
)

// Middleware wires permission checks into HTTP handlers. Anonymous
// requests get 401, denied actors get 403; the resolver itself never
// surfaces an error.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// Require gates a route on a single module/action pair over the wildcard
// resource.
func (m Middleware) Require(module Module, action Action) func(http.Handler) http.Handler {
	return m.RequireAll(GrantKey{Module: module, Resource: ResourceAny, Action: action})
}

// RequireAny admits the request when at least one key is allowed.
func (m Middleware) RequireAny(keys ...GrantKey) func(http.Handler) http.Handler {
	return m.guard(func(r *http.Request, actor Actor) bool {
		return m.Resolver.HasAny(r.Context(), actor, keys...)
	})
}

// RequireAll admits the request only when every key is allowed.
func (m Middleware) RequireAll(keys ...GrantKey) func(http.Handler) http.Handler {
	return m.guard(func(r *http.Request, actor Actor) bool {
		return m.Resolver.HasAll(r.Context(), actor, keys...)
	})
}

func (m Middleware) guard(allowed func(*http.Request, Actor) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if !allowed(r, actor) {
				if m.Logger != nil {
					m.Logger.Warn("request denied",
						slog.Int64("actor_id", actor.ID),
						slog.String("role", actor.Role),
						slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
