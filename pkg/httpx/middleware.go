package httpx

import (
	"net/http"
	"strings"

	"github.com/voluntree/voluntree/pkg/jwtx"
	"github.com/voluntree/voluntree/pkg/slogx"
)

// Middleware wraps an http.Handler with extra behavior.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares to h in declaration order: the first
// middleware listed is the outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// TokenSource extracts a raw access token from a request, or "" when
// the source carries none.
type TokenSource func(*http.Request) string

// BearerTokenSource reads "Authorization: Bearer <token>".
func BearerTokenSource(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
}

// CookieTokenSource reads the named cookie.
func CookieTokenSource(name string) TokenSource {
	return func(r *http.Request) string {
		c, err := r.Cookie(name)
		if err != nil {
			return ""
		}
		return c.Value
	}
}

// AuthnMiddleware verifies an access token from the first source that
// yields one and injects the claims into the request context. Sources
// are tried in order, so a bearer header can take precedence over a
// cookie for API clients.
func AuthnMiddleware(v jwtx.Verifier, sources ...TokenSource) Middleware {
	if len(sources) == 0 {
		sources = []TokenSource{BearerTokenSource}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			var raw string
			for _, src := range sources {
				if raw = src(r); raw != "" {
					break
				}
			}
			if raw == "" {
				writeBearerError(w, "missing access token")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("access token verification failed", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			ctx = contextWithAuth(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             "invalid_token",
		"error_description": desc,
	})
}
