package http

import (
	"errors"
	"net/http"

	"github.com/voluntree/voluntree/internal/auth/service"
	"github.com/voluntree/voluntree/internal/auth/store"
	"github.com/voluntree/voluntree/pkg/httpx"
	"github.com/voluntree/voluntree/pkg/slogx"
)

// MeHandler returns the profile of the account the access token
// asserts. Runs behind the authn middleware.
type MeHandler struct {
	Accounts store.Accounts
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID := httpx.AccountIDFromContext(ctx)
	if accountID == "" {
		writeServiceError(w, log, service.ErrSessionInvalid)
		return
	}

	acct, err := h.Accounts.GetAccountByID(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		// Token outlived the account.
		writeServiceError(w, log, service.ErrSessionInvalid)
		return
	}
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, acct.PublicProfile())
}
