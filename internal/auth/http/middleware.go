package http

import (
	"context"
	"net/http"

	"github.com/copperlane/gatehouse/pkg/httpx"
	"github.com/copperlane/gatehouse/pkg/jwtx"
	"github.com/copperlane/gatehouse/pkg/slogx"
)

// RequireAuth verifies the access-token cookie and injects the caller's user
// and session ids into the request context.
func RequireAuth(codec *jwtx.Codec) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			cookie, err := r.Cookie(accessCookieName)
			if err != nil || cookie.Value == "" {
				writeUnauthorized(w)
				return
			}

			claims, err := codec.VerifyAccess(cookie.Value)
			if err != nil {
				log.Info("access token rejected", "error", err)
				writeUnauthorized(w)
				return
			}

			ctx = context.WithValue(ctx, httpx.CtxKeyUserID, claims.UserID)
			ctx = context.WithValue(ctx, httpx.CtxKeySessionID, claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusUnauthorized, errorResponse{
		Error: "unauthorized", Message: "Authentication required.",
	})
}
