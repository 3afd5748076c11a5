package http

import (
	"net/http"
	"time"

	"github.com/voluntree/voluntree/internal/auth/domain"
)

// Cookie names. The refresh cookie is scoped to the auth prefix so the
// long-lived secret only ever travels to the endpoints that need it.
const (
	AccessCookieName  = "vt_access"
	RefreshCookieName = "vt_refresh"

	refreshCookiePath = "/v1/auth"
)

// CookieCodec maps token pairs onto transport cookies. Cookie lifetime
// is always derived from the token's own TTL, never configured
// separately, so the two cannot drift apart.
type CookieCodec struct {
	Domain string
	Secure bool
}

// SetPair writes both token cookies for the given pair.
func (c CookieCodec) SetPair(w http.ResponseWriter, pair domain.TokenPair) {
	http.SetCookie(w, c.cookie(AccessCookieName, pair.AccessToken, "/", pair.AccessTTL))
	http.SetCookie(w, c.cookie(RefreshCookieName, pair.RefreshToken, refreshCookiePath, pair.RefreshTTL))
}

// Clear expires both cookies immediately.
func (c CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(AccessCookieName, "", "/", -time.Second))
	http.SetCookie(w, c.cookie(RefreshCookieName, "", refreshCookiePath, -time.Second))
}

// RefreshToken reads the raw refresh token from the request, or "".
func (c CookieCodec) RefreshToken(r *http.Request) string {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (c CookieCodec) cookie(name, value, path string, ttl time.Duration) *http.Cookie {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   c.Domain,
		MaxAge:   maxAge,
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
