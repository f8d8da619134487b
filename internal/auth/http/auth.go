package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/copperlane/gatehouse/internal/auth/service"
	"github.com/copperlane/gatehouse/pkg/httpx"
)

// AuthHandler serves the /api/v1/auth endpoints. Request body schemas are
// deliberately small; full validation lives at the edge in front of this
// service.
type AuthHandler struct {
	AuthService *service.AuthService

	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid JSON body.")
		return
	}
	if req.Username == "" || req.Password == "" || req.Email == "" {
		writeBadRequest(w, "username, password and email are required.")
		return
	}

	user, err := h.AuthService.Register(r.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"data":    user,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid JSON body.")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required.")
		return
	}

	result, err := h.AuthService.Login(r.Context(), req.Email, req.Password, r.UserAgent())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	setAccessCookie(w, result.Tokens.AccessToken, h.AccessTTL)
	setRefreshCookie(w, result.Tokens.RefreshToken, h.RefreshTTL)

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message":     "User logged in successfully",
		"user":        result.User,
		"mfaRequired": result.MFARequired,
	})
}

func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		writeServiceError(w, r, service.ErrUnauthorized)
		return
	}

	result, err := h.AuthService.Refresh(r.Context(), cookie.Value)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	setAccessCookie(w, result.AccessToken, h.AccessTTL)
	if result.RefreshToken != "" {
		setRefreshCookie(w, result.RefreshToken, h.RefreshTTL)
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Refreshed access token successfully",
	})
}

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sessionID := httpx.SessionIDFromContext(r.Context())

	if err := h.AuthService.Logout(r.Context(), sessionID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	clearAuthCookies(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "User logged out successfully",
	})
}

type verifyEmailRequest struct {
	Code string `json:"code"`
}

func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid JSON body.")
		return
	}
	if len(req.Code) == 0 {
		writeBadRequest(w, "code is required.")
		return
	}

	if _, err := h.AuthService.VerifyEmail(r.Context(), req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Email verified successfully",
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid JSON body.")
		return
	}
	if req.Email == "" {
		writeBadRequest(w, "email is required.")
		return
	}

	if err := h.AuthService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Password reset email sent successfully",
	})
}

type resetPasswordRequest struct {
	Password         string `json:"password"`
	VerificationCode string `json:"verificationCode"`
}

func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid JSON body.")
		return
	}
	if req.Password == "" || req.VerificationCode == "" {
		writeBadRequest(w, "password and verificationCode are required.")
		return
	}

	if _, err := h.AuthService.ResetPassword(r.Context(), req.Password, req.VerificationCode); err != nil {
		writeServiceError(w, r, err)
		return
	}

	// Every session died with the old password; the caller's cookies are
	// useless now, so clear them.
	clearAuthCookies(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Password reset successfully",
	})
}
