package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/voluntree/voluntree/internal/auth/service"
	"github.com/voluntree/voluntree/internal/auth/store"
	"github.com/voluntree/voluntree/pkg/httpx"
	"github.com/voluntree/voluntree/pkg/slogx"
)

// VerifyOTPHandler turns a correct one-time code into a session: it
// consumes the challenge, starts a refresh-token lineage, and sets both
// token cookies.
type VerifyOTPHandler struct {
	Accounts   store.Accounts
	Challenges *service.ChallengeService
	Sessions   *service.SessionService
	Cookies    CookieCodec
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *VerifyOTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Body must be valid JSON")
		return
	}

	acct, err := h.Accounts.GetAccountByEmail(ctx, service.NormalizeEmail(req.Email))
	if errors.Is(err, store.ErrNotFound) {
		// An address with no account reads the same as one whose code
		// lapsed.
		writeServiceError(w, log, service.ErrExpired)
		return
	}
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	result, err := h.Challenges.Verify(ctx, acct.ID, req.Code)
	if errors.Is(err, service.ErrInvalidCode) {
		remaining := result.AttemptsRemaining
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:             "invalid_code",
			ErrorDescription:  "The code is incorrect",
			AttemptsRemaining: &remaining,
		})
		return
	}
	if err != nil {
		if errors.Is(err, service.ErrLocked) {
			log.Warn("otp attempt ceiling hit", "account_id", acct.ID)
		}
		writeServiceError(w, log, err)
		return
	}

	pair, err := h.Sessions.Start(ctx, acct)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	h.Cookies.SetPair(w, pair)
	httpx.WriteJSON(w, http.StatusOK, acct.PublicProfile())
}
