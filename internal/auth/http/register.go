package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/voluntree/voluntree/internal/auth/service"
	"github.com/voluntree/voluntree/pkg/httpx"
	"github.com/voluntree/voluntree/pkg/slogx"
)

// minPasswordLength keeps trivially guessable passwords out without
// imposing composition rules.
const minPasswordLength = 10

type RegisterHandler struct {
	Credentials *service.CredentialsService
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Body must be valid JSON")
		return
	}

	if !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "invalid_request", "A valid email is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "Password is too short")
		return
	}

	acct, err := h.Credentials.Register(ctx, req.Email, req.Name, req.Password)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	log.Info("account registered", "account_id", acct.ID)
	httpx.WriteJSON(w, http.StatusCreated, acct.PublicProfile())
}
