package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/media"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/query"
	"github.com/cliptube/backend/internal/repositories"
)

type fakeUserStore struct {
	users     map[string]models.User
	history   []string
	createErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]models.User)}
}

func (s *fakeUserStore) Create(_ context.Context, user models.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *fakeUserStore) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	for _, u := range s.users {
		if u.Username == identifier || u.Email == identifier {
			return u, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *fakeUserStore) Exists(_ context.Context, username, email string) (bool, error) {
	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeUserStore) UpdateAccount(_ context.Context, id, fullName, email string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	user.FullName = fullName
	user.Email = email
	s.users[id] = user
	return user, nil
}

func (s *fakeUserStore) UpdateAvatar(_ context.Context, id, avatarURL string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	user.Avatar = avatarURL
	s.users[id] = user
	return user, nil
}

func (s *fakeUserStore) UpdateCoverImage(_ context.Context, id, coverURL string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	user.CoverImage = coverURL
	s.users[id] = user
	return user, nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.Password = passwordHash
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) ChannelProfile(_ context.Context, username, _ string) (models.ChannelProfile, error) {
	for _, u := range s.users {
		if u.Username == username {
			return models.ChannelProfile{User: u}, nil
		}
	}
	return models.ChannelProfile{}, repositories.ErrNotFound
}

func (s *fakeUserStore) AppendWatchHistory(_ context.Context, userID, videoID string) error {
	s.history = append(s.history, userID+":"+videoID)
	return nil
}

func (s *fakeUserStore) WatchHistory(_ context.Context, _ string, page, size int) (query.Page[models.WatchHistoryEntry], error) {
	return query.NewPage([]models.WatchHistoryEntry{}, 0, page, size), nil
}

func (s *fakeUserStore) SetRefreshToken(_ context.Context, userID, token string) error {
	user, ok := s.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	user.RefreshToken = token
	s.users[userID] = user
	return nil
}

func (s *fakeUserStore) RefreshTokenFor(_ context.Context, userID string) (string, error) {
	return s.users[userID].RefreshToken, nil
}

func (s *fakeUserStore) ClearRefreshToken(_ context.Context, userID string) error {
	user, ok := s.users[userID]
	if !ok {
		return nil
	}
	user.RefreshToken = ""
	s.users[userID] = user
	return nil
}

type fakeMediaGateway struct {
	uploads int
	deleted []string
}

func (g *fakeMediaGateway) Upload(_ context.Context, localPath string) (*media.Asset, error) {
	if localPath == "" {
		return nil, nil
	}
	g.uploads++
	key := fmt.Sprintf("asset-%d", g.uploads)
	return &media.Asset{URL: "https://cdn.test/" + key, Key: key}, nil
}

func (g *fakeMediaGateway) Delete(_ context.Context, key string) error {
	if key != "" {
		g.deleted = append(g.deleted, key)
	}
	return nil
}

func newTestSessions(t *testing.T, store auth.CredentialStore) *auth.Manager {
	t.Helper()
	tokens, err := auth.NewTokenService("access-secret", "refresh-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	return auth.NewManager(tokens, store)
}

type envelopeBody struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

func decodeEnvelope(t *testing.T, body io.Reader) envelopeBody {
	t.Helper()
	var env envelopeBody
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func seedUser(t *testing.T, store *fakeUserStore, username, password string) models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{
		ID:       "user-" + username,
		Username: username,
		Email:    username + "@example.com",
		FullName: username,
		Password: string(hashed),
	}
	store.users[user.ID] = user
	return user
}

func multipartForm(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for field, contents := range files {
		fw, err := mw.CreateFormFile(field, field+".png")
		if err != nil {
			t.Fatalf("create file part %s: %v", field, err)
		}
		if _, err := io.Copy(fw, strings.NewReader(contents)); err != nil {
			t.Fatalf("write file part %s: %v", field, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUserHandlerRegister(t *testing.T) {
	store := newFakeUserStore()
	gateway := &fakeMediaGateway{}
	handler := UserHandler{Users: store, Sessions: newTestSessions(t, store), Media: gateway}

	body, contentType := multipartForm(t, map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"fullName": "Alice Example",
		"password": "supersafe1",
	}, map[string]string{"avatar": "fake-image-bytes"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec.Body)
	if !env.Success || env.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	var created models.User
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode created user: %v", err)
	}
	if created.Avatar == "" {
		t.Fatal("expected avatar URL to be set")
	}

	stored, err := store.FindByIdentifier(context.Background(), "alice")
	if err != nil {
		t.Fatalf("expected user stored: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("supersafe1")) != nil {
		t.Fatal("stored password is not hashed")
	}
	if gateway.uploads != 1 {
		t.Fatalf("expected 1 upload, got %d", gateway.uploads)
	}
}

func TestUserHandlerRegisterConflictSkipsUpload(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "alice", "password123")
	gateway := &fakeMediaGateway{}
	handler := UserHandler{Users: store, Sessions: newTestSessions(t, store), Media: gateway}

	body, contentType := multipartForm(t, map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"fullName": "Alice Again",
		"password": "supersafe1",
	}, map[string]string{"avatar": "fake-image-bytes"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d got %d", http.StatusConflict, rec.Code)
	}
	if gateway.uploads != 0 {
		t.Fatalf("expected no uploads on conflict, got %d", gateway.uploads)
	}
}

func TestUserHandlerRegisterCleansUpAfterCreateFailure(t *testing.T) {
	store := newFakeUserStore()
	store.createErr = repositories.ErrConflict
	gateway := &fakeMediaGateway{}
	uploadDir := t.TempDir()
	handler := UserHandler{Users: store, Sessions: newTestSessions(t, store), Media: gateway, UploadDir: uploadDir}

	body, contentType := multipartForm(t, map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"fullName": "Alice Example",
		"password": "supersafe1",
	}, map[string]string{"avatar": "fake-avatar-bytes", "coverImage": "fake-cover-bytes"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d got %d: %s", http.StatusConflict, rec.Code, rec.Body.String())
	}
	if len(store.users) != 0 {
		t.Fatalf("expected no stored user, got %d", len(store.users))
	}

	// Both uploads happened before the insert failed, so both objects must
	// have been deleted again.
	if gateway.uploads != 2 {
		t.Fatalf("expected 2 uploads, got %d", gateway.uploads)
	}
	if len(gateway.deleted) != 2 || gateway.deleted[0] != "asset-1" || gateway.deleted[1] != "asset-2" {
		t.Fatalf("expected both uploaded assets deleted, got %v", gateway.deleted)
	}

	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected spooled temp files removed, found %d", len(entries))
	}
}

func TestUserHandlerLogin(t *testing.T) {
	store := newFakeUserStore()
	user := seedUser(t, store, "alice", "password123")
	handler := UserHandler{Users: store, Sessions: newTestSessions(t, store)}

	body, _ := json.Marshal(loginRequest{Username: "alice", Password: "password123"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec.Body)
	var resp loginResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatalf("expected tokens to be issued, got %+v", resp.Tokens)
	}
	if resp.User.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, resp.User.ID)
	}

	cookies := rec.Result().Cookies()
	var names []string
	for _, c := range cookies {
		names = append(names, c.Name)
		if !c.HttpOnly {
			t.Fatalf("expected cookie %s to be http-only", c.Name)
		}
	}
	if len(names) != 2 {
		t.Fatalf("expected access and refresh cookies, got %v", names)
	}
}

func TestUserHandlerLoginRejectsBadPassword(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "alice", "password123")
	handler := UserHandler{Users: store, Sessions: newTestSessions(t, store)}

	for _, payload := range []loginRequest{
		{Username: "alice", Password: "wrong"},
		{Username: "nobody", Password: "password123"},
	} {
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Login(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
		}
		env := decodeEnvelope(t, rec.Body)
		if env.Success || env.Message != "invalid credentials" {
			t.Fatalf("expected uniform credential failure, got %+v", env)
		}
	}
}

func TestUserHandlerRefreshRotatesToken(t *testing.T) {
	store := newFakeUserStore()
	user := seedUser(t, store, "alice", "password123")
	sessions := newTestSessions(t, store)
	handler := UserHandler{Users: store, Sessions: sessions}

	issued, err := sessions.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: issued.RefreshToken})
	rec := httptest.NewRecorder()

	handler.RefreshToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec.Body)
	var tokens models.SessionTokens
	if err := json.Unmarshal(env.Data, &tokens); err != nil {
		t.Fatalf("decode tokens: %v", err)
	}
	if tokens.RefreshToken == issued.RefreshToken {
		t.Fatal("expected refresh token to rotate")
	}

	// The pre-rotation token must now be rejected as a replay.
	replay := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	replay.AddCookie(&http.Cookie{Name: "refreshToken", Value: issued.RefreshToken})
	rec = httptest.NewRecorder()

	handler.RefreshToken(rec, replay)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d for replayed token, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestUserHandlerRefreshRejectsDeletedUser(t *testing.T) {
	store := newFakeUserStore()
	user := seedUser(t, store, "alice", "password123")
	sessions := newTestSessions(t, store)
	handler := UserHandler{Users: store, Sessions: sessions}

	issued, err := sessions.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	// The signature on the token is still valid; only the account is gone.
	delete(store.users, user.ID)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: issued.RefreshToken})
	rec := httptest.NewRecorder()

	handler.RefreshToken(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d: %s", http.StatusUnauthorized, rec.Code, rec.Body.String())
	}
}

func TestUserHandlerLogoutRevokesSession(t *testing.T) {
	store := newFakeUserStore()
	user := seedUser(t, store, "alice", "password123")
	sessions := newTestSessions(t, store)
	handler := UserHandler{Users: store, Sessions: sessions}

	if _, err := sessions.Issue(context.Background(), user.ID); err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()

	handler.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	token, err := store.RefreshTokenFor(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("load refresh token: %v", err)
	}
	if token != "" {
		t.Fatalf("expected refresh token cleared, got %q", token)
	}

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 && c.Value != "" {
			t.Fatalf("expected cookie %s to be cleared", c.Name)
		}
	}
}

func TestUserHandlerChangePassword(t *testing.T) {
	store := newFakeUserStore()
	user := seedUser(t, store, "alice", "password123")
	handler := UserHandler{Users: store, Sessions: newTestSessions(t, store)}

	body, _ := json.Marshal(changePasswordRequest{OldPassword: "password123", NewPassword: "evensafer1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/change-password", bytes.NewReader(body))
	req = req.WithContext(middleware.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()

	handler.ChangePassword(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	stored, _ := store.FindByID(context.Background(), user.ID)
	if bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("evensafer1")) != nil {
		t.Fatal("expected new password to be stored")
	}
}

func TestUserHandlerRateLimitsLogin(t *testing.T) {
	store := newFakeUserStore()
	handler := UserHandler{Users: store, Sessions: newTestSessions(t, store), Limiter: denyAllLimiter{}}

	body, _ := json.Marshal(loginRequest{Username: "alice", Password: "password123"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d got %d", http.StatusTooManyRequests, rec.Code)
	}
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }
