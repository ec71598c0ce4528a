package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/cliptube/backend/internal/models"
)

var (
	// ErrTokenMismatch indicates a structurally valid refresh token that does
	// not match the one currently stored for the user: the token was rotated,
	// revoked, or is being replayed.
	ErrTokenMismatch = errors.New("refresh token mismatch")
)

// CredentialStore persists the single active refresh token per user.
// RefreshTokenFor reports "" (not an error) when no token is stored, whether
// because the session was revoked or the user no longer exists; errors are
// reserved for the store itself failing.
type CredentialStore interface {
	SetRefreshToken(ctx context.Context, userID, token string) error
	RefreshTokenFor(ctx context.Context, userID string) (string, error)
	ClearRefreshToken(ctx context.Context, userID string) error
}

// Manager owns the session lifecycle: it issues access/refresh pairs, rotates
// the stored refresh token on every use, and revokes it on logout.
type Manager struct {
	tokens *TokenService
	store  CredentialStore
}

// NewManager constructs a Manager over the provided token service and store.
func NewManager(tokens *TokenService, store CredentialStore) *Manager {
	if tokens == nil || store == nil {
		panic("auth: token service and credential store must not be nil")
	}
	return &Manager{tokens: tokens, store: store}
}

// Issue mints a fresh token pair for the user and persists the refresh token,
// overwriting (and thereby invalidating) any previously issued one.
func (m *Manager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	accessToken, accessExp, err := m.tokens.IssueAccess(userID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	refreshToken, refreshExp, err := m.tokens.IssueRefresh(userID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.store.SetRefreshToken(ctx, userID, refreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh exchanges a presented refresh token for a new pair. The token must
// verify cryptographically and match the stored value byte for byte; a valid
// signature over a rotated token fails with ErrTokenMismatch.
func (m *Manager) Refresh(ctx context.Context, presented string) (models.SessionTokens, error) {
	if presented == "" {
		return models.SessionTokens{}, ErrTokenInvalid
	}

	userID, err := m.tokens.VerifyRefresh(presented)
	if err != nil {
		return models.SessionTokens{}, err
	}

	stored, err := m.store.RefreshTokenFor(ctx, userID)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("load stored refresh token: %w", err)
	}

	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) != 1 {
		return models.SessionTokens{}, ErrTokenMismatch
	}

	return m.Issue(ctx, userID)
}

// Revoke clears the stored refresh token for the user. Revoking an already
// revoked session is a no-op.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return m.store.ClearRefreshToken(ctx, userID)
}
