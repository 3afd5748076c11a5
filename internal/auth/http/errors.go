// Package http exposes the auth flows over HTTP: JSON request/response
// bodies, token cookies, and a uniform error shape.
package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/voluntree/voluntree/internal/auth/service"
	"github.com/voluntree/voluntree/pkg/httpx"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error             string `json:"error"`
	ErrorDescription  string `json:"error_description"`
	AttemptsRemaining *int   `json:"attempts_remaining,omitempty"`
}

func writeError(w http.ResponseWriter, status int, kind, desc string) {
	httpx.WriteJSON(w, status, ErrorResponse{Error: kind, ErrorDescription: desc})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses
// and error kinds. Anything unmapped is an infrastructure failure:
// logged in full, surfaced generically.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials",
			"Email or password is incorrect")
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken",
			"An account with this email already exists")
	case errors.Is(err, service.ErrCooldown):
		writeError(w, http.StatusTooManyRequests, "cooldown",
			"A code was sent recently, wait before requesting another")
	case errors.Is(err, service.ErrDispatchFailed):
		writeError(w, http.StatusBadGateway, "dispatch_failed",
			"The code could not be delivered, try again")
	case errors.Is(err, service.ErrExpired):
		writeError(w, http.StatusBadRequest, "expired",
			"The code has expired, request a new one")
	case errors.Is(err, service.ErrLocked):
		writeError(w, http.StatusBadRequest, "locked",
			"Too many attempts, sign in again to get a new code")
	case errors.Is(err, service.ErrSessionInvalid):
		writeError(w, http.StatusUnauthorized, "session_invalid",
			"Session is no longer valid, sign in again")
	default:
		log.Error("unexpected service error", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error",
			"Something went wrong")
	}
}
