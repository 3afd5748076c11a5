package http

import (
	"encoding/json"
	"net/http"

	"github.com/voluntree/voluntree/internal/auth/service"
	"github.com/voluntree/voluntree/pkg/httpx"
	"github.com/voluntree/voluntree/pkg/slogx"
)

// LoginHandler checks the password and, when it matches, sends a
// one-time code. No tokens and no cookies yet; those only exist after
// the code comes back.
type LoginHandler struct {
	Credentials *service.CredentialsService
	Challenges  *service.ChallengeService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string `json:"message"`
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Body must be valid JSON")
		return
	}

	acct, err := h.Credentials.Verify(ctx, req.Email, req.Password)
	if err != nil {
		// Unknown email and wrong password produce the identical
		// response body and status.
		writeServiceError(w, log, err)
		return
	}

	if err := h.Challenges.Issue(ctx, acct); err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, loginResponse{
		Message: "Check your email for a sign-in code",
	})
}
