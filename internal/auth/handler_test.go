package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shoshin-Dev-Ivy/portfolio-backend/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthRouterForTests(t *testing.T, secureCookies bool) (*mux.Router, *Service) {
	t.Helper()

	service := newTestService(t)
	handler := NewHandler(service, secureCookies)

	r := mux.NewRouter()
	adminGuard := middleware.NewAuthMiddlewareHandler(CookieName, service).AuthCheck()
	handler.SetupRoutes(r, adminGuard)
	return r, service
}

func loginRequestBody(t *testing.T, key string) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(map[string]string{"key": key})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func doLogin(router *mux.Router, body *bytes.Buffer) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/admin/login", body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandleLogin(t *testing.T) {
	router, _ := setupAuthRouterForTests(t, false)

	rr := doLogin(router, loginRequestBody(t, testAdminKey))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"success":true}`, rr.Body.String())

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, CookieName, cookie.Name)
	assert.NotEmpty(t, cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 3600, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
}

func TestHandleLogin_SecureCookieInProduction(t *testing.T) {
	router, _ := setupAuthRouterForTests(t, true)

	rr := doLogin(router, loginRequestBody(t, testAdminKey))
	require.Equal(t, http.StatusOK, rr.Code)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].Secure)
}

func TestHandleLogin_Preflight(t *testing.T) {
	router, _ := setupAuthRouterForTests(t, false)

	for _, path := range []string{"/admin/login", "/admin/logout", "/admin/check"} {
		req := httptest.NewRequest("OPTIONS", path, nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code, path)
		assert.Empty(t, rr.Result().Cookies(), path)
	}
}

func TestHandleLogin_WrongKey(t *testing.T) {
	router, _ := setupAuthRouterForTests(t, false)

	rr := doLogin(router, loginRequestBody(t, "not-the-admin-key"))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_CREDENTIALS")
	assert.Empty(t, rr.Result().Cookies())
}

func TestHandleLogin_MissingKey(t *testing.T) {
	router, _ := setupAuthRouterForTests(t, false)

	rr := doLogin(router, loginRequestBody(t, ""))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "MISSING_KEY")

	// form body without a key field
	req := httptest.NewRequest("POST", "/admin/login", bytes.NewBufferString("other=value"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "MISSING_KEY")
}

func TestHandleLogin_FormEncodedKey(t *testing.T) {
	router, _ := setupAuthRouterForTests(t, false)

	req := httptest.NewRequest("POST", "/admin/login", bytes.NewBufferString("key="+testAdminKey))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, rr.Result().Cookies(), 1)
}

func TestHandleCheck(t *testing.T) {
	router, _ := setupAuthRouterForTests(t, false)

	t.Run("with valid session cookie", func(t *testing.T) {
		loginRR := doLogin(router, loginRequestBody(t, testAdminKey))
		require.Equal(t, http.StatusOK, loginRR.Code)
		sessionCookie := loginRR.Result().Cookies()[0]

		req := httptest.NewRequest("GET", "/admin/check", nil)
		req.AddCookie(sessionCookie)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, `{"authenticated":true}`, rr.Body.String())
	})

	t.Run("without cookie", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin/check", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "UNAUTHENTICATED")
	})

	t.Run("with garbage token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin/check", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-jwt"})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "INVALID_TOKEN")
	})
}

func TestHandleCheck_ExpiredToken(t *testing.T) {
	router, service := setupAuthRouterForTests(t, false)

	loginRR := doLogin(router, loginRequestBody(t, testAdminKey))
	require.Equal(t, http.StatusOK, loginRR.Code)
	sessionCookie := loginRR.Result().Cookies()[0]

	// move the clock past the token lifetime
	service.NowFunc = func() time.Time {
		return time.Now().Add(TokenTTL + time.Minute)
	}

	req := httptest.NewRequest("GET", "/admin/check", nil)
	req.AddCookie(sessionCookie)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_TOKEN")
}

func TestHandleLogout(t *testing.T) {
	router, _ := setupAuthRouterForTests(t, false)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("POST", "/admin/logout", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"success":true}`, rr.Body.String())

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	cleared := cookies[0]
	assert.Equal(t, CookieName, cleared.Name)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, -1, cleared.MaxAge)
	assert.Equal(t, "/", cleared.Path)
	assert.True(t, cleared.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cleared.SameSite)
}

func TestLogoutThenCheck(t *testing.T) {
	router, _ := setupAuthRouterForTests(t, false)

	loginRR := doLogin(router, loginRequestBody(t, testAdminKey))
	require.Equal(t, http.StatusOK, loginRR.Code)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("POST", "/admin/logout", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	// client dropped the cookie, check is unauthenticated again
	req := httptest.NewRequest("GET", "/admin/check", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "UNAUTHENTICATED")
}

var _ middleware.TokenChecker = (*Service)(nil)
