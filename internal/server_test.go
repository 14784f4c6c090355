package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Shoshin-Dev-Ivy/portfolio-backend/internal/auth"
	"github.com/Shoshin-Dev-Ivy/portfolio-backend/internal/config"
	"github.com/Shoshin-Dev-Ivy/portfolio-backend/internal/contact"
	"github.com/Shoshin-Dev-Ivy/portfolio-backend/internal/instrumentation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTestServer builds a server with no live postgres/redis behind it,
// enough for exercising routing and the endpoints that never reach storage.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	return &Server{
		config: &config.Config{
			Environment:                "development",
			AllowedOrigins:             []string{"http://localhost:3000"},
			CaptchaHostnames:           []string{"localhost", "localhost:3000"},
			ContactRateLimitMax:        3,
			ContactRateLimitWindowMins: 15,
		},
		versionInfo:     "test-version",
		authService:     auth.NewService("not-a-real-hash", []byte("test-signing-secret")),
		contactVerifier: contact.NewVerifier(contact.DefaultVerifyURL, "", http.DefaultClient),
		contactSender:   contact.NewSMTPSender(contact.SMTPSenderParams{}),
		instr:           instrumentation.NewTestInstrumentation(),
	}
}

func TestRouter_Root(t *testing.T) {
	router := newTestServer(t).routerSetup()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var info struct {
		Name      string   `json:"name"`
		Status    string   `json:"status"`
		Version   string   `json:"version"`
		Endpoints []string `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))

	assert.Equal(t, "portfolio-backend", info.Name)
	assert.Equal(t, "ok", info.Status)
	assert.Equal(t, "test-version", info.Version)
	assert.Contains(t, info.Endpoints, "POST /contact")
	assert.Contains(t, info.Endpoints, "GET /maintenance")
	assert.Contains(t, info.Endpoints, "POST /admin/login")
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := newTestServer(t).routerSetup()

	for _, req := range []*http.Request{
		httptest.NewRequest("GET", "/definitely-not-a-route", nil),
		httptest.NewRequest("POST", "/contact/extra", nil),
		httptest.NewRequest("GET", "/admin", nil),
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusNotFound, rr.Code, req.URL.Path)
		assert.Contains(t, rr.Body.String(), "ROUTE_NOT_FOUND", req.URL.Path)
	}
}

func TestRouter_ContactPreflight(t *testing.T) {
	router := newTestServer(t).routerSetup()

	req := httptest.NewRequest("OPTIONS", "/contact", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	// the full chain: CORS headers set, no validation error, no rate
	// limit slot consumed (the limiter is skipped for OPTIONS entirely,
	// no redis round-trip happens)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}
