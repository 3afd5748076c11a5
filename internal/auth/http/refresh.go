package http

import (
	"errors"
	"net/http"

	"github.com/voluntree/voluntree/internal/auth/service"
	"github.com/voluntree/voluntree/pkg/httpx"
	"github.com/voluntree/voluntree/pkg/slogx"
)

// RefreshHandler rotates the refresh token from the cookie and re-sets
// both cookies. Any rotation failure clears the cookies: a client
// holding a dead token should stop presenting it.
type RefreshHandler struct {
	Sessions *service.SessionService
	Cookies  CookieCodec
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	raw := h.Cookies.RefreshToken(r)
	if raw == "" {
		h.Cookies.Clear(w)
		writeServiceError(w, log, service.ErrSessionInvalid)
		return
	}

	pair, acct, err := h.Sessions.Rotate(ctx, raw)
	if err != nil {
		if errors.Is(err, service.ErrSessionInvalid) {
			// Unknown hash here is either an expired login or a replayed
			// token after rotation; both merit a closer look.
			log.Warn("refresh token rejected, possible replay")
			h.Cookies.Clear(w)
		}
		writeServiceError(w, log, err)
		return
	}

	h.Cookies.SetPair(w, pair)
	httpx.WriteJSON(w, http.StatusOK, acct.PublicProfile())
}
