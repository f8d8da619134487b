package http

import (
	"errors"
	"net/http"

	"github.com/copperlane/gatehouse/internal/auth/service"
	"github.com/copperlane/gatehouse/pkg/httpx"
	"github.com/copperlane/gatehouse/pkg/slogx"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeServiceError maps a typed service failure to a transport status and a
// user-safe message. Anything unrecognized is an internal error: the cause is
// logged server-side and never echoed to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteJSON(w, http.StatusConflict, errorResponse{
			Error: "conflict", Message: "Email is already registered.",
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteJSON(w, http.StatusUnauthorized, errorResponse{
			Error: "invalid_credentials", Message: "Invalid email or password provided.",
		})
	case errors.Is(err, service.ErrUnauthorized):
		httpx.WriteJSON(w, http.StatusUnauthorized, errorResponse{
			Error: "unauthorized", Message: "Authentication required.",
		})
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteJSON(w, http.StatusNotFound, errorResponse{
			Error: "not_found", Message: "The requested resource was not found.",
		})
	case errors.Is(err, service.ErrTooManyRequests):
		httpx.WriteJSON(w, http.StatusTooManyRequests, errorResponse{
			Error: "too_many_requests", Message: "Too many requests, try again later.",
		})
	case errors.Is(err, service.ErrBadRequest):
		httpx.WriteJSON(w, http.StatusBadRequest, errorResponse{
			Error: "bad_request", Message: "The request could not be processed.",
		})
	default:
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "internal_error", Message: "Something went wrong.",
		})
	}
}

func writeBadRequest(w http.ResponseWriter, message string) {
	httpx.WriteJSON(w, http.StatusBadRequest, errorResponse{
		Error: "bad_request", Message: message,
	})
}
