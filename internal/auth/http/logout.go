package http

import (
	"net/http"

	"github.com/voluntree/voluntree/internal/auth/service"
	"github.com/voluntree/voluntree/pkg/slogx"
)

// LogoutHandler revokes the lineage behind the refresh cookie and
// clears both cookies. It succeeds even without a cookie; logging out
// twice is fine.
type LogoutHandler struct {
	Sessions *service.SessionService
	Cookies  CookieCodec
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if raw := h.Cookies.RefreshToken(r); raw != "" {
		if err := h.Sessions.Revoke(ctx, raw); err != nil {
			writeServiceError(w, log, err)
			return
		}
	}

	h.Cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}
