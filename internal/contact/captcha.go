package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultVerifyURL is the Google reCAPTCHA server-side verification endpoint.
const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// the verification call gets a hard deadline; Google not answering must not
// hold the contact request open
const verifyTimeout = 3 * time.Second

var ErrVerifyTimeout = errors.New("captcha verification timed out")

// Verdict is the verification service's reply. Consumed once, never stored.
type Verdict struct {
	Success     bool     `json:"success"`
	Score       float64  `json:"score"`
	Action      string   `json:"action"`
	Hostname    string   `json:"hostname"`
	ChallengeTS string   `json:"challenge_ts"`
	ErrorCodes  []string `json:"error-codes"`
}

func (v *Verdict) JoinedErrorCodes() string {
	if len(v.ErrorCodes) == 0 {
		return "unknown error"
	}
	return strings.Join(v.ErrorCodes, ", ")
}

type Verifier struct {
	verifyURL  string
	secret     string
	httpClient *http.Client
	// ability to shorten the hard deadline in unit tests
	Timeout time.Duration
}

func NewVerifier(verifyURL, secret string, httpClient *http.Client) *Verifier {
	return &Verifier{
		verifyURL:  verifyURL,
		secret:     secret,
		httpClient: httpClient,
		Timeout:    verifyTimeout,
	}
}

// Configured returns true if the server-side captcha secret is set.
func (v *Verifier) Configured() bool {
	return v.secret != ""
}

// Verify sends the client token to the verification service and decodes the
// verdict. The call is aborted after the verify timeout and reported as
// ErrVerifyTimeout.
func (v *Verifier) Verify(ctx context.Context, clientToken string) (*Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, v.Timeout)
	defer cancel()

	form := url.Values{
		"secret":   {v.secret},
		"response": {clientToken},
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("new captcha verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrVerifyTimeout
		}
		return nil, fmt.Errorf("captcha verify call: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read captcha verify response: %w", err)
	}

	verdict := &Verdict{}
	if err := json.Unmarshal(respBytes, verdict); err != nil {
		return nil, fmt.Errorf("unmarshal captcha verify response: %w", err)
	}

	return verdict, nil
}
