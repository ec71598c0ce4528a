package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/media"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// UserHandler implements registration, the session lifecycle, and account
// management endpoints.
type UserHandler struct {
	Users    UserStore
	Sessions SessionManager
	Media    MediaGateway

	UploadDir      string
	MaxUploadBytes int64
	Limiter        RateLimiter
	NowFunc        func() time.Time
}

// Register handles POST /api/v1/users/register. The request is multipart: the
// account fields plus a required avatar image and an optional cover image.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "register") {
		respond(ctx, w, http.StatusTooManyRequests, nil, "too many registration attempts, slow down")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes())
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		logger.Warn("invalid registration form", "error", err)
		badRequest(ctx, w, "invalid multipart form")
		return
	}

	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	fullName := strings.TrimSpace(r.FormValue("fullName"))
	password := r.FormValue("password")

	if username == "" || email == "" || fullName == "" || password == "" {
		badRequest(ctx, w, "username, email, fullName, and password are required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		badRequest(ctx, w, "invalid email address")
		return
	}
	if len(password) < 8 {
		badRequest(ctx, w, "password must be at least 8 characters")
		return
	}

	// Conflicts are checked before any media leaves the machine so a taken
	// username never costs an upload.
	exists, err := h.Users.Exists(ctx, username, email)
	if err != nil {
		respondError(ctx, w, err, "unable to verify existing accounts")
		return
	}
	if exists {
		respond(ctx, w, http.StatusConflict, nil, "username or email already registered")
		return
	}

	avatarPath, err := media.SaveFormFile(r, "avatar", h.UploadDir)
	if err != nil {
		logger.Warn("avatar spool failed", "error", err)
		badRequest(ctx, w, "unable to read avatar upload")
		return
	}
	coverPath, err := media.SaveFormFile(r, "coverImage", h.UploadDir)
	if err != nil {
		media.RemoveTemp(avatarPath)
		logger.Warn("cover spool failed", "error", err)
		badRequest(ctx, w, "unable to read cover image upload")
		return
	}
	defer media.RemoveTemp(avatarPath, coverPath)

	if avatarPath == "" {
		badRequest(ctx, w, "avatar image is required")
		return
	}

	avatar, err := h.Media.Upload(ctx, avatarPath)
	if err != nil {
		respondError(ctx, w, err, "avatar upload failed")
		return
	}
	cover, err := h.Media.Upload(ctx, coverPath)
	if err != nil {
		h.discardAsset(r, avatar)
		respondError(ctx, w, err, "cover image upload failed")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.discardAsset(r, avatar)
		h.discardAsset(r, cover)
		respondError(ctx, w, err, "failed to secure password")
		return
	}

	now := h.now()
	user := models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		FullName:  fullName,
		Avatar:    avatar.URL,
		Password:  string(hashed),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if cover != nil {
		user.CoverImage = cover.URL
	}

	if err := h.Users.Create(ctx, user); err != nil {
		// A racing registration won the row; the uploaded assets are orphans.
		h.discardAsset(r, avatar)
		h.discardAsset(r, cover)
		if errors.Is(err, repositories.ErrConflict) {
			respond(ctx, w, http.StatusConflict, nil, "username or email already registered")
			return
		}
		respondError(ctx, w, err, "failed to create account")
		return
	}

	user.Password = ""
	respond(ctx, w, http.StatusCreated, user, "account created")
}

// Login handles POST /api/v1/users/login. Every credential failure reports the
// same message so callers cannot probe which accounts exist.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "login") {
		respond(ctx, w, http.StatusTooManyRequests, nil, "too many login attempts, slow down")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(ctx, w, "invalid request body")
		return
	}

	identifier := strings.ToLower(strings.TrimSpace(req.Identifier))
	if identifier == "" {
		identifier = strings.ToLower(strings.TrimSpace(req.Username))
	}
	if identifier == "" {
		identifier = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if identifier == "" || req.Password == "" {
		badRequest(ctx, w, "username or email and password are required")
		return
	}

	user, err := h.Users.FindByIdentifier(ctx, identifier)
	if err != nil {
		logger.Warn("login lookup failed", "identifier", identifier, "error", err)
		respond(ctx, w, http.StatusUnauthorized, nil, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		respond(ctx, w, http.StatusUnauthorized, nil, "invalid credentials")
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		respondError(ctx, w, err, "failed to create session")
		return
	}

	user.Password = ""
	user.RefreshToken = ""

	setSessionCookies(w, tokens)
	respond(ctx, w, http.StatusOK, loginResponse{User: user, Tokens: tokens}, "logged in")
}

// Logout handles POST /api/v1/users/logout: the stored refresh token is
// revoked and the session cookies cleared.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	if err := h.Sessions.Revoke(ctx, user.ID); err != nil {
		respondError(ctx, w, err, "failed to revoke session")
		return
	}

	clearSessionCookies(w)
	respond(ctx, w, http.StatusOK, nil, "logged out")
}

// RefreshToken handles POST /api/v1/users/refresh-token. The refresh token is
// read from the refreshToken cookie or, failing that, the request body.
func (h UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	presented := ""
	if cookie, err := r.Cookie("refreshToken"); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			presented = strings.TrimSpace(req.RefreshToken)
		}
	}
	if presented == "" {
		respond(ctx, w, http.StatusUnauthorized, nil, "refresh token is required")
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, presented)
	if err != nil {
		respondError(ctx, w, err, "invalid or expired refresh token")
		return
	}

	setSessionCookies(w, tokens)
	respond(ctx, w, http.StatusOK, tokens, "session refreshed")
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(ctx, w, "invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		badRequest(ctx, w, "oldPassword and newPassword are required")
		return
	}
	if len(req.NewPassword) < 8 {
		badRequest(ctx, w, "password must be at least 8 characters")
		return
	}

	// The middleware blanks credentials, so re-read the stored hash.
	stored, err := h.Users.FindByID(ctx, user.ID)
	if err != nil {
		respondError(ctx, w, err, "account lookup failed")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte(req.OldPassword)); err != nil {
		respond(ctx, w, http.StatusUnauthorized, nil, "old password is incorrect")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondError(ctx, w, err, "failed to secure password")
		return
	}

	if err := h.Users.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		respondError(ctx, w, err, "failed to update password")
		return
	}

	respond(ctx, w, http.StatusOK, nil, "password changed")
}

// Me handles GET /api/v1/users/me.
func (h UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	respond(ctx, w, http.StatusOK, user, "current user")
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(ctx, w, "invalid request body")
		return
	}

	fullName := strings.TrimSpace(req.FullName)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if fullName == "" || email == "" {
		badRequest(ctx, w, "fullName and email are required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		badRequest(ctx, w, "invalid email address")
		return
	}

	updated, err := h.Users.UpdateAccount(ctx, user.ID, fullName, email)
	if err != nil {
		respondError(ctx, w, err, "failed to update account")
		return
	}

	updated.Password = ""
	updated.RefreshToken = ""
	respond(ctx, w, http.StatusOK, updated, "account updated")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar with a multipart avatar file.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.swapImage(w, r, "avatar", h.Users.UpdateAvatar, func(u models.User) string { return u.Avatar })
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image with a multipart
// coverImage file.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.swapImage(w, r, "coverImage", h.Users.UpdateCoverImage, func(u models.User) string { return u.CoverImage })
}

// Channel handles GET /api/v1/users/channel/{username}.
func (h UserHandler) Channel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	viewer, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	username := strings.ToLower(strings.TrimSpace(r.PathValue("username")))
	if username == "" {
		badRequest(ctx, w, "username is required")
		return
	}

	profile, err := h.Users.ChannelProfile(ctx, username, viewer.ID)
	if err != nil {
		respondError(ctx, w, err, "channel not found")
		return
	}

	respond(ctx, w, http.StatusOK, profile, "channel profile")
}

// WatchHistory handles GET /api/v1/users/history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	page, limit := pageParams(r)
	history, err := h.Users.WatchHistory(ctx, user.ID, page, limit)
	if err != nil {
		respondError(ctx, w, err, "failed to load watch history")
		return
	}

	respond(ctx, w, http.StatusOK, history, "watch history")
}

// swapImage spools the uploaded image, stores it, persists the new URL, and
// best-effort deletes the replaced object.
func (h UserHandler) swapImage(w http.ResponseWriter, r *http.Request, field string, persist func(ctx context.Context, userID, url string) (models.User, error), current func(models.User) string) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes())
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		badRequest(ctx, w, "invalid multipart form")
		return
	}

	path, err := media.SaveFormFile(r, field, h.UploadDir)
	if err != nil {
		logger.Warn("image spool failed", "field", field, "error", err)
		badRequest(ctx, w, "unable to read image upload")
		return
	}
	defer media.RemoveTemp(path)

	if path == "" {
		badRequest(ctx, w, field+" file is required")
		return
	}

	asset, err := h.Media.Upload(ctx, path)
	if err != nil {
		respondError(ctx, w, err, "image upload failed")
		return
	}

	previous := current(user)

	updated, err := persist(ctx, user.ID, asset.URL)
	if err != nil {
		h.discardAsset(r, asset)
		respondError(ctx, w, err, "failed to update image")
		return
	}

	if previous != "" {
		if err := h.Media.Delete(ctx, assetKey(previous)); err != nil {
			logger.Warn("failed to delete replaced image", "url", previous, "error", err)
		}
	}

	updated.Password = ""
	updated.RefreshToken = ""
	respond(ctx, w, http.StatusOK, updated, "image updated")
}

// discardAsset best-effort deletes an uploaded object after a failed create.
func (h UserHandler) discardAsset(r *http.Request, asset *media.Asset) {
	if asset == nil {
		return
	}
	if err := h.Media.Delete(r.Context(), asset.Key); err != nil {
		logging.FromContext(r.Context()).Warn("failed to delete orphaned upload", "key", asset.Key, "error", err)
	}
}

// assetKey extracts the object key from a stored public URL.
func assetKey(url string) string {
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}

func (h UserHandler) maxUploadBytes() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return 256 << 20
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

type loginResponse struct {
	User   models.User          `json:"user"`
	Tokens models.SessionTokens `json:"tokens"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}
