package http

import (
	"net/http"

	"github.com/voluntree/voluntree/internal/auth/service"
	"github.com/voluntree/voluntree/pkg/httpx"
	"github.com/voluntree/voluntree/pkg/slogx"
)

// SessionsHandler lists the caller's device logins. The refresh cookie,
// when present, marks which listed session is the caller's own.
type SessionsHandler struct {
	Sessions *service.SessionService
	Cookies  CookieCodec
}

func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID := httpx.AccountIDFromContext(ctx)
	if accountID == "" {
		writeServiceError(w, log, service.ErrSessionInvalid)
		return
	}

	list, err := h.Sessions.List(ctx, accountID, h.Cookies.RefreshToken(r))
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"sessions": list})
}

// LogoutAllHandler revokes every lineage for the calling account and
// clears the caller's own cookies.
type LogoutAllHandler struct {
	Sessions *service.SessionService
	Cookies  CookieCodec
}

func (h *LogoutAllHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID := httpx.AccountIDFromContext(ctx)
	if accountID == "" {
		writeServiceError(w, log, service.ErrSessionInvalid)
		return
	}

	if err := h.Sessions.RevokeAll(ctx, accountID); err != nil {
		writeServiceError(w, log, err)
		return
	}

	h.Cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}
