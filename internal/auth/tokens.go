package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid indicates a token failed signature, expiry, or claim checks.
	ErrTokenInvalid = errors.New("token invalid")
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type claims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies the HS256 JWTs used as access and refresh
// credentials. Access tokens are stateless; refresh tokens additionally map
// to the single stored value on the user record (see Manager).
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	now func() time.Time
}

// NewTokenService constructs a TokenService with distinct secrets for the two
// token classes.
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("auth: token secrets must be provided")
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// IssueAccess mints a short-lived access token carrying the user identifier.
func (s *TokenService) IssueAccess(userID string) (string, time.Time, error) {
	return s.issue(userID, tokenTypeAccess, s.accessTTL, s.accessSecret)
}

// IssueRefresh mints a long-lived refresh token carrying the user identifier.
func (s *TokenService) IssueRefresh(userID string) (string, time.Time, error) {
	return s.issue(userID, tokenTypeRefresh, s.refreshTTL, s.refreshSecret)
}

// VerifyAccess validates an access token and returns the carried user id.
func (s *TokenService) VerifyAccess(token string) (string, error) {
	return s.verify(token, tokenTypeAccess, s.accessSecret)
}

// VerifyRefresh validates a refresh token's signature and expiry and returns
// the carried user id. Comparison against the stored value is the Manager's
// responsibility.
func (s *TokenService) VerifyRefresh(token string) (string, error) {
	return s.verify(token, tokenTypeRefresh, s.refreshSecret)
}

// RefreshTTL reports the configured refresh token lifetime.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

func (s *TokenService) issue(userID, tokenType string, ttl time.Duration, secret []byte) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("auth: user id must be provided")
	}

	now := s.now()
	expiresAt := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", tokenType, err)
	}

	return signed, expiresAt, nil
}

func (s *TokenService) verify(token, wantType string, secret []byte) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", ErrTokenInvalid
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || c.TokenType != wantType || c.Subject == "" {
		return "", ErrTokenInvalid
	}

	return c.Subject, nil
}
