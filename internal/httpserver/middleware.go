package httpserver

import (
	"net/http"
	"strings"

	"papertrader/internal/auth"
	"papertrader/internal/httputil"
	"papertrader/internal/sessions"
)

type sessionHandler func(w http.ResponseWriter, r *http.Request, s *sessions.Session)

// withSession resolves the bearer token to a live session and hands it to the
// wrapped handler. A valid token whose session was torn down is a 404, not a
// 401: the token was real, the account is gone.
func withSession(authSvc *auth.Service, mgr *sessions.Manager, next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		parts := strings.SplitN(authz, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "missing bearer token"})
			return
		}
		sessionID, err := authSvc.ParseToken(parts[1])
		if err != nil {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "invalid token"})
			return
		}
		s, ok := mgr.Get(sessionID)
		if !ok {
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "session not found"})
			return
		}
		next(w, r, s)
	}
}

// withAdmin gates feed controls behind the bcrypt-hashed admin token.
func withAdmin(adminTokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.CheckAdminToken(adminTokenHash, r.Header.Get("X-Admin-Token")) {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "invalid admin token"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
