package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Shoshin-Dev-Ivy/portfolio-backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service       *Service
	secureCookies bool // true in production, cookie gets the Secure attribute
}

func NewHandler(service *Service, secureCookies bool) *Handler {
	return &Handler{
		service:       service,
		secureCookies: secureCookies,
	}
}

// SetupRoutes binds login/check/logout under /admin. The check endpoint is
// behind the admin guard, login and logout are public.
func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	adminGuard func(next http.Handler) http.Handler,
) {
	adminRouter := mainRouter.PathPrefix("/admin").Subrouter()
	adminRouter.HandleFunc("/login", handler.handleLogin).Methods("POST", "OPTIONS").Name("admin-login")
	adminRouter.HandleFunc("/logout", handler.handleLogout).Methods("POST", "OPTIONS").Name("admin-logout")

	checkRouter := adminRouter.PathPrefix("/check").Subrouter()
	checkRouter.HandleFunc("", handler.handleCheck).Methods("GET", "OPTIONS").Name("admin-check")
	checkRouter.Use(adminGuard)
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	type loginRequest struct {
		Key string `json:"key"`
	}

	var loginReq loginRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
			log.Errorf("login, unmarshal json params: %s", err)
			pkg.WriteJSONError(w, "MISSING_KEY", "key required", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Errorf("login failed, parse form error: %s", err)
			pkg.WriteJSONError(w, "MISSING_KEY", "key required", http.StatusBadRequest)
			return
		}
		loginReq.Key = r.Form.Get("key")
	}

	if loginReq.Key == "" {
		pkg.WriteJSONError(w, "MISSING_KEY", "key required", http.StatusBadRequest)
		return
	}

	token, err := handler.service.Login(loginReq.Key)
	if errors.Is(err, ErrWrongKey) {
		log.Trace("failed admin login attempt")
		pkg.WriteJSONError(w, "INVALID_CREDENTIALS", "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		log.Errorf("login failed, generate token error: %s", err)
		pkg.WriteJSONError(w, "AUTH_ERROR", "authentication error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, handler.sessionCookie(token))

	log.Trace("new admin login success")
	pkg.WriteJSONResponseOK(w, `{"success":true}`)
}

func (handler *Handler) handleCheck(w http.ResponseWriter, _ *http.Request) {
	// the admin guard already verified the session cookie
	pkg.WriteJSONResponseOK(w, `{"authenticated":true}`)
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	// attributes must match the ones used on login, otherwise some
	// clients refuse to drop the cookie; always succeeds
	cleared := handler.sessionCookie("")
	cleared.MaxAge = -1
	http.SetCookie(w, cleared)

	pkg.WriteJSONResponseOK(w, `{"success":true}`)
}

func (handler *Handler) sessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   handler.secureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}
