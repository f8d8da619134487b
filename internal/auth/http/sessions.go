package http

import (
	"net/http"

	"github.com/copperlane/gatehouse/internal/auth/service"
	"github.com/copperlane/gatehouse/pkg/httpx"
)

// SessionHandler serves the authenticated /api/v1/sessions endpoints.
type SessionHandler struct {
	AuthService *service.AuthService
}

type sessionResponse struct {
	ID        string `json:"id"`
	UserAgent string `json:"userAgent,omitempty"`
	CreatedAt string `json:"createdAt"`
	ExpiredAt string `json:"expiredAt"`
	IsCurrent bool   `json:"isCurrent"`
}

func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	currentID := httpx.SessionIDFromContext(r.Context())

	sessions, err := h.AuthService.ListSessions(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:        s.ID,
			UserAgent: s.UserAgent,
			CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
			ExpiredAt: s.ExpiresAt.Format("2006-01-02T15:04:05.000Z07:00"),
			IsCurrent: s.ID == currentID,
		})
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message":  "Sessions retrieved successfully",
		"sessions": out,
	})
}

func (h *SessionHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeBadRequest(w, "session id is required.")
		return
	}

	if err := h.AuthService.RevokeSession(r.Context(), userID, sessionID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Session removed successfully",
	})
}
