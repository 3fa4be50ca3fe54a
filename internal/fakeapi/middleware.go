package fakeapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/Sontara444/taskmanager-client/logging"
)

const cookieName = "token"

type ctxKey struct{}

func (b *Backend) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := ""
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			tokenStr = strings.TrimPrefix(authHeader, "Bearer ")
		} else if c, err := r.Cookie(cookieName); err == nil {
			tokenStr = c.Value
		}
		if tokenStr == "" {
			logging.Logger.Warnf("Event ID: JWT_AUTH_MISSING, Description: no credentials for %s %s", r.Method, r.URL.Path)
			writeError(w, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		claims, err := b.validateToken(tokenStr)
		if err != nil {
			logging.Logger.Warnf("Event ID: JWT_AUTH_INVALID_TOKEN, Description: invalid token for %s %s: %v", r.Method, r.URL.Path, err)
			writeError(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}

		b.mu.Lock()
		user, ok := b.users[claims.UserID]
		revoked := ok && user.revoked[claims.ID]
		b.mu.Unlock()
		if !ok || revoked {
			writeError(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, session{userID: user.ID, tokenID: claims.ID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type session struct {
	userID  string
	tokenID string
}

func sessionOf(r *http.Request) session {
	s, _ := r.Context().Value(ctxKey{}).(session)
	return s
}
