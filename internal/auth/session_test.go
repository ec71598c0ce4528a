package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memoryCredentialStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newMemoryCredentialStore() *memoryCredentialStore {
	return &memoryCredentialStore{tokens: make(map[string]string)}
}

func (s *memoryCredentialStore) SetRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	s.tokens[userID] = token
	s.mu.Unlock()
	return nil
}

func (s *memoryCredentialStore) RefreshTokenFor(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[userID], nil
}

func (s *memoryCredentialStore) ClearRefreshToken(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.tokens, userID)
	s.mu.Unlock()
	return nil
}

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	svc, err := NewTokenService("access-secret", "refresh-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	return svc
}

func TestManagerIssueAndRefresh(t *testing.T) {
	store := newMemoryCredentialStore()
	manager := NewManager(newTestTokenService(t), store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", tokens)
	}
	if store.tokens["user-1"] != tokens.RefreshToken {
		t.Fatal("refresh token was not persisted")
	}

	refreshed, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected a rotated refresh token")
	}
	if store.tokens["user-1"] != refreshed.RefreshToken {
		t.Fatal("rotation did not overwrite the stored token")
	}
}

func TestManagerRefreshRejectsRotatedToken(t *testing.T) {
	store := newMemoryCredentialStore()
	manager := NewManager(newTestTokenService(t), store)

	first, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := manager.Refresh(context.Background(), first.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// The old token still has a valid signature; replaying it must fail
	// with a mismatch, not a signature error.
	if _, err := manager.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("expected ErrTokenMismatch got %v", err)
	}
}

func TestManagerRefreshRejectsTamperedToken(t *testing.T) {
	store := newMemoryCredentialStore()
	manager := NewManager(newTestTokenService(t), store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tampered := tokens.RefreshToken[:len(tokens.RefreshToken)-2] + "xx"
	if _, err := manager.Refresh(context.Background(), tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid got %v", err)
	}

	if _, err := manager.Refresh(context.Background(), ""); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for empty token got %v", err)
	}
}

func TestManagerRefreshRejectsAccessToken(t *testing.T) {
	store := newMemoryCredentialStore()
	manager := NewManager(newTestTokenService(t), store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := manager.Refresh(context.Background(), tokens.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for access token got %v", err)
	}
}

func TestManagerRevokeIsIdempotent(t *testing.T) {
	store := newMemoryCredentialStore()
	manager := NewManager(newTestTokenService(t), store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := manager.Revoke(context.Background(), "user-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := manager.Revoke(context.Background(), "user-1"); err != nil {
		t.Fatalf("second revoke: %v", err)
	}

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("expected ErrTokenMismatch after revoke got %v", err)
	}
}

func TestTokenServiceExpiry(t *testing.T) {
	svc, err := NewTokenService("a", "r", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}

	base := time.Now().UTC()
	svc.now = func() time.Time { return base }

	token, _, err := svc.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	if _, err := svc.VerifyAccess(token); err != nil {
		t.Fatalf("verify before expiry: %v", err)
	}

	svc.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := svc.VerifyAccess(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid after expiry got %v", err)
	}
}

func TestTokenServiceRejectsCrossTypeUse(t *testing.T) {
	svc := newTestTokenService(t)

	access, _, err := svc.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	refresh, _, err := svc.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	if _, err := svc.VerifyRefresh(access); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected access token to fail refresh verification, got %v", err)
	}
	if _, err := svc.VerifyAccess(refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected refresh token to fail access verification, got %v", err)
	}

	userID, err := svc.VerifyAccess(access)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1 got %q", userID)
	}
}
