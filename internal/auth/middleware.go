package auth

import (
	"net"
	"net/http"
	"strings"

	"github.com/Ezrah1/orlando/internal/rbac"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "orlando_session"

// Middleware resolves the request's session through the guard and stores
// the actor in the request context. Requests without a valid session
// proceed anonymously; route-level RBAC middleware decides what that
// means.
type Middleware struct {
	Guard  *Guard
	Secure bool
}

// Handler wraps the next handler with session resolution.
func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		verdict := m.Guard.Check(r.Context(), token, clientIP(r), r.UserAgent())
		switch verdict.State {
		case StateAuthenticated:
			ctx := rbac.ContextWithActor(r.Context(), verdict.Actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		default:
			// Terminal or invalid: clear the cookie and fall through
			// anonymously.
			clearSessionCookie(w, m.Secure)
			next.ServeHTTP(w, r)
		}
	})
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// clientIP strips the port from RemoteAddr when one is present. Behind
// the RealIP middleware RemoteAddr is already a bare address, possibly
// IPv6, which must pass through untouched.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return strings.Trim(r.RemoteAddr, "[]")
}

// SetSessionCookie writes the session cookie for a fresh login.
func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
