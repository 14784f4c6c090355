package contact

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const captchaOkResponse = `{
	"success": true,
	"score": 0.9,
	"action": "submit",
	"challenge_ts": "2024-03-01T10:00:00Z",
	"hostname": "localhost:3000"
}`

func TestVerifier_Verify(t *testing.T) {
	apiCallsCount := 0
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiCallsCount++

		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "dummy-secret", r.Form.Get("secret"))
		assert.Equal(t, "client-token", r.Form.Get("response"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(captchaOkResponse))
	}))
	defer testServer.Close()

	verifier := NewVerifier(testServer.URL, "dummy-secret", testServer.Client())
	require.True(t, verifier.Configured())

	verdict, err := verifier.Verify(context.Background(), "client-token")
	require.NoError(t, err)
	assert.Equal(t, 1, apiCallsCount)
	assert.True(t, verdict.Success)
	assert.Equal(t, 0.9, verdict.Score)
	assert.Equal(t, "submit", verdict.Action)
	assert.Equal(t, "localhost:3000", verdict.Hostname)
}

func TestVerifier_Verify_ErrorCodes(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": false, "error-codes": ["invalid-input-response", "timeout-or-duplicate"]}`))
	}))
	defer testServer.Close()

	verifier := NewVerifier(testServer.URL, "dummy-secret", testServer.Client())

	verdict, err := verifier.Verify(context.Background(), "stale-token")
	require.NoError(t, err)
	assert.False(t, verdict.Success)
	assert.Equal(t, "invalid-input-response, timeout-or-duplicate", verdict.JoinedErrorCodes())
}

func TestVerifier_Verify_Timeout(t *testing.T) {
	unblock := make(chan struct{})
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-unblock
	}))
	defer func() {
		close(unblock)
		testServer.Close()
	}()

	verifier := NewVerifier(testServer.URL, "dummy-secret", testServer.Client())
	verifier.Timeout = 50 * time.Millisecond

	_, err := verifier.Verify(context.Background(), "client-token")
	require.ErrorIs(t, err, ErrVerifyTimeout)
}

func TestVerifier_Verify_TransportError(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	testServer.Close() // connection refused from now on

	verifier := NewVerifier(testServer.URL, "dummy-secret", http.DefaultClient)

	_, err := verifier.Verify(context.Background(), "client-token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrVerifyTimeout)
}

func TestVerifier_Configured(t *testing.T) {
	assert.False(t, NewVerifier(DefaultVerifyURL, "", http.DefaultClient).Configured())
	assert.True(t, NewVerifier(DefaultVerifyURL, "s", http.DefaultClient).Configured())
}

func TestVerdict_JoinedErrorCodes_Empty(t *testing.T) {
	verdict := &Verdict{}
	assert.Equal(t, "unknown error", verdict.JoinedErrorCodes())
}
