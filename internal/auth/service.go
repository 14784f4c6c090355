package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/Shoshin-Dev-Ivy/portfolio-backend/pkg"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenTTL is the lifetime of an admin session token.
	TokenTTL = time.Hour
	// CookieName carries the session token on the client side.
	CookieName = "admin_token"

	adminRole = "admin"
)

var (
	ErrWrongKey     = errors.New("wrong admin key")
	ErrInvalidToken = errors.New("invalid or expired token")
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service checks the admin passphrase and mints/verifies signed session
// tokens. Verification is stateless, nothing is stored server-side.
type Service struct {
	adminKeyHash  string
	signingSecret []byte

	// failed login attempts are delayed by this much, uniformly,
	// to throttle brute forcing; injectable for unit tests
	FailureDelay time.Duration
	NowFunc      func() time.Time
}

func NewService(adminKeyHash string, signingSecret []byte) *Service {
	return &Service{
		adminKeyHash:  adminKeyHash,
		signingSecret: signingSecret,
		FailureDelay:  time.Second,
		NowFunc:       time.Now,
	}
}

// Login compares the given key against the stored hash and, on success,
// returns a fresh signed session token. A mismatch is reported only after
// the failure delay has elapsed, regardless of why the check failed.
func (s *Service) Login(key string) (string, error) {
	if !pkg.CheckPasswordHash(key, s.adminKeyHash) {
		time.Sleep(s.FailureDelay)
		return "", ErrWrongKey
	}
	return s.mintToken()
}

func (s *Service) mintToken() (string, error) {
	now := s.NowFunc()
	claims := Claims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// TokenValid verifies the token signature, expiry and role claim.
func (s *Service) TokenValid(tokenString string) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.NowFunc),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (interface{}, error) {
		return s.signingSecret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}

	if claims.Role != adminRole {
		return ErrInvalidToken
	}

	return nil
}
