package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cliptube/backend/internal/models"
)

type stubVerifier struct {
	userID string
	err    error
}

func (s stubVerifier) VerifyAccess(string) (string, error) {
	return s.userID, s.err
}

type stubResolver struct {
	user models.User
	err  error
}

func (s stubResolver) FindByID(context.Context, string) (models.User, error) {
	return s.user, s.err
}

func okHandler(t *testing.T, wantUser string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := CurrentUser(r.Context())
		if !ok {
			t.Fatal("expected user on context")
		}
		if user.ID != wantUser {
			t.Fatalf("expected user %q got %q", wantUser, user.ID)
		}
		if user.Password != "" || user.RefreshToken != "" {
			t.Fatal("credential fields must be blanked before attaching")
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateWithCookie(t *testing.T) {
	resolver := stubResolver{user: models.User{ID: "user-1", Password: "hash", RefreshToken: "tok"}}
	handler := Authenticate(stubVerifier{userID: "user-1"}, resolver)(okHandler(t, "user-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: "signed-token"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestAuthenticateWithBearerHeader(t *testing.T) {
	resolver := stubResolver{user: models.User{ID: "user-1"}}
	handler := Authenticate(stubVerifier{userID: "user-1"}, resolver)(okHandler(t, "user-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer signed-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run for unauthenticated requests")
	})

	cases := []struct {
		name     string
		verifier stubVerifier
		resolver stubResolver
		token    string
	}{
		{name: "missing token", verifier: stubVerifier{userID: "user-1"}},
		{name: "invalid token", verifier: stubVerifier{err: errors.New("bad signature")}, token: "tampered"},
		{name: "unknown user", verifier: stubVerifier{userID: "ghost"}, resolver: stubResolver{err: errors.New("not found")}, token: "valid"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := Authenticate(tc.verifier, tc.resolver)(next)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401 got %d", rec.Code)
			}
		})
	}
}
