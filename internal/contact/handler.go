package contact

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Shoshin-Dev-Ivy/portfolio-backend/internal/instrumentation"
	"github.com/Shoshin-Dev-Ivy/portfolio-backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const (
	maxMessageLength = 250
	minCaptchaScore  = 0.5
	// the frontend executes the captcha with this action name
	expectedCaptchaAction = "submit"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type Handler struct {
	verifier         *Verifier
	sender           Sender
	allowedHostnames []string
	instr            *instrumentation.Instrumentation
}

func NewHandler(
	verifier *Verifier,
	sender Sender,
	allowedHostnames []string,
	instr *instrumentation.Instrumentation,
) *Handler {
	return &Handler{
		verifier:         verifier,
		sender:           sender,
		allowedHostnames: allowedHostnames,
		instr:            instr,
	}
}

// SetupRoutes binds the contact endpoint behind the given per-client
// rate limiter.
func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimit func(next http.Handler) http.Handler,
) {
	contactRouter := mainRouter.PathPrefix("/contact").Subrouter()
	contactRouter.HandleFunc("", handler.handleSubmit).Methods("POST", "OPTIONS").Name("contact-submit")
	contactRouter.Use(rateLimit)
}

type submitRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Message        string `json:"message"`
	RecaptchaToken string `json:"recaptchaToken"`
}

// handleSubmit runs the submission through the validation pipeline,
// short-circuiting on the first failure, and on full success dispatches the
// two notification emails. Nothing about the submission is retained.
func (handler *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var submitReq submitRequest
	if err := json.NewDecoder(r.Body).Decode(&submitReq); err != nil {
		handler.reject(w, "MISSING_FIELDS", "please fill in all the fields", http.StatusBadRequest)
		return
	}

	if submitReq.Name == "" || submitReq.Email == "" ||
		submitReq.Message == "" || submitReq.RecaptchaToken == "" {
		handler.reject(w, "MISSING_FIELDS", "please fill in all the fields", http.StatusBadRequest)
		return
	}

	if !emailRegex.MatchString(submitReq.Email) {
		handler.reject(w, "INVALID_EMAIL", "invalid email format", http.StatusBadRequest)
		return
	}

	if utf8.RuneCountInString(submitReq.Message) > maxMessageLength {
		handler.reject(w, "MESSAGE_TOO_LONG", "message cannot exceed 250 characters", http.StatusBadRequest)
		return
	}

	if !handler.verifier.Configured() {
		log.Error("contact: captcha secret missing on the server")
		handler.reject(w, "SERVER_MISCONFIGURED", "captcha key missing on the server", http.StatusInternalServerError)
		return
	}

	verdict, err := handler.verifier.Verify(r.Context(), submitReq.RecaptchaToken)
	if errors.Is(err, ErrVerifyTimeout) {
		log.Errorf("contact: captcha verification timed out")
		handler.reject(w, "CAPTCHA_TIMEOUT", "captcha verification did not respond", http.StatusGatewayTimeout)
		return
	}
	if err != nil {
		log.Errorf("contact: captcha verification: %s", err)
		handler.reject(w, "CAPTCHA_SERVICE_ERROR", "captcha verification failed", http.StatusInternalServerError)
		return
	}

	if !verdict.Success {
		handler.reject(
			w, "CAPTCHA_REJECTED",
			"captcha verification failed: "+verdict.JoinedErrorCodes(),
			http.StatusBadRequest,
		)
		return
	}

	if !handler.hostnameAllowed(verdict.Hostname) {
		// never log the raw hostname, only its truncated hash
		log.Errorf("contact: invalid captcha hostname (hash): %s", pkg.FingerprintString(verdict.Hostname))
		handler.reject(w, "CAPTCHA_HOSTNAME_INVALID", "captcha hostname invalid", http.StatusForbidden)
		return
	}

	if verdict.Score < minCaptchaScore || verdict.Action != expectedCaptchaAction {
		log.Errorf("contact: captcha score/action rejected: score=%.2f action=%s", verdict.Score, verdict.Action)
		handler.reject(w, "CAPTCHA_SCORE_REJECTED", "captcha rejected (low score or wrong action)", http.StatusForbidden)
		return
	}

	sub := Submission{
		Name:    sanitizeText(submitReq.Name),
		Email:   normalizeEmail(submitReq.Email),
		Message: sanitizeText(submitReq.Message),
	}

	if !handler.sender.Configured() {
		log.Error("contact: mail transport configuration incomplete")
		handler.reject(w, "MAIL_MISCONFIGURED", "server email configuration incomplete", http.StatusInternalServerError)
		return
	}

	// two sequential dispatches sharing one failure path; no partial
	// success is reported to the caller
	if err := handler.sender.SendContactNotification(sub); err != nil {
		log.Errorf("contact: send notification mail: %s", err)
		handler.reject(w, "MAIL_DISPATCH_FAILED", "an error occurred while sending the email", http.StatusInternalServerError)
		return
	}
	if err := handler.sender.SendConfirmation(sub); err != nil {
		log.Errorf("contact: send confirmation mail: %s", err)
		handler.reject(w, "MAIL_DISPATCH_FAILED", "an error occurred while sending the email", http.StatusInternalServerError)
		return
	}

	if handler.instr != nil {
		handler.instr.CounterContactSubmissions.Inc()
	}
	pkg.WriteJSONResponseOK(w, `{"success":true,"message":"message sent"}`)
}

// hostnameAllowed accepts an exact or prefix match, so "localhost:3000"
// passes against the "localhost" entry.
func (handler *Handler) hostnameAllowed(hostname string) bool {
	if hostname == "" {
		return false
	}
	for _, allowed := range handler.allowedHostnames {
		if hostname == allowed || strings.HasPrefix(hostname, allowed) {
			return true
		}
	}
	return false
}

func (handler *Handler) reject(w http.ResponseWriter, errCode, message string, statusCode int) {
	if handler.instr != nil {
		handler.instr.CounterContactRejections.Inc()
	}
	pkg.WriteJSONError(w, errCode, message, statusCode)
}
