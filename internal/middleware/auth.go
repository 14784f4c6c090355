package middleware

import (
	"net/http"

	"github.com/Shoshin-Dev-Ivy/portfolio-backend/pkg"

	log "github.com/sirupsen/logrus"
)

// TokenChecker verifies a session token; implemented by auth.Service.
type TokenChecker interface {
	TokenValid(token string) error
}

type AuthMiddlewareHandler struct {
	cookieName   string
	tokenChecker TokenChecker
}

func NewAuthMiddlewareHandler(cookieName string, tokenChecker TokenChecker) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		cookieName:   cookieName,
		tokenChecker: tokenChecker,
	}
}

// AuthCheck guards a route behind a valid admin session cookie. The wrapped
// handler learns nothing beyond "the caller is the admin".
func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, OPTIONS")
				w.WriteHeader(http.StatusOK)
				return
			}

			cookie, err := r.Cookie(h.cookieName)
			if err != nil {
				log.Tracef("[missing session cookie] unauthorized => %s", r.URL.Path)
				pkg.WriteJSONError(w, "UNAUTHENTICATED", "no token provided", http.StatusUnauthorized)
				return
			}

			if err := h.tokenChecker.TokenValid(cookie.Value); err != nil {
				log.Tracef("[invalid session token] unauthorized => %s", r.URL.Path)
				pkg.WriteJSONError(w, "INVALID_TOKEN", "invalid or expired token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
