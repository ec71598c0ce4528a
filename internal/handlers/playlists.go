package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// PlaylistHandler implements the playlist endpoints.
type PlaylistHandler struct {
	Playlists PlaylistStore
	NowFunc   func() time.Time
}

// Create handles POST /api/v1/playlists.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(ctx, w, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		badRequest(ctx, w, "name is required")
		return
	}

	now := h.now()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     user.ID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Playlists.Create(ctx, playlist); err != nil {
		respondError(ctx, w, err, "failed to create playlist")
		return
	}

	respond(ctx, w, http.StatusCreated, playlist, "playlist created")
}

// Get handles GET /api/v1/playlists/{playlistId}: the playlist with its owner
// and resolved videos in playlist order.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, err := h.Playlists.FindByID(ctx, r.PathValue("playlistId"))
	if err != nil {
		respondError(ctx, w, err, "playlist not found")
		return
	}

	respond(ctx, w, http.StatusOK, playlist, "playlist")
}

// ListForUser handles GET /api/v1/playlists/user/{userId}.
func (h PlaylistHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := r.PathValue("userId")
	if userID == "" {
		badRequest(ctx, w, "userId is required")
		return
	}

	playlists, err := h.Playlists.ListForUser(ctx, userID)
	if err != nil {
		respondError(ctx, w, err, "failed to load playlists")
		return
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}

	respond(ctx, w, http.StatusOK, playlists, "playlists")
}

// Update handles PATCH /api/v1/playlists/{playlistId}, owner only.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	var req playlistUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(ctx, w, "invalid request body")
		return
	}
	if req.Name == nil && req.Description == nil {
		badRequest(ctx, w, "nothing to update")
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		badRequest(ctx, w, "name cannot be empty")
		return
	}

	playlist, err := h.Playlists.Update(ctx, r.PathValue("playlistId"), user.ID, repositories.PlaylistUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(ctx, w, err, "failed to update playlist")
		return
	}

	respond(ctx, w, http.StatusOK, playlist, "playlist updated")
}

// Delete handles DELETE /api/v1/playlists/{playlistId}, owner only.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	if err := h.Playlists.Delete(ctx, r.PathValue("playlistId"), user.ID); err != nil {
		respondError(ctx, w, err, "failed to delete playlist")
		return
	}

	respond(ctx, w, http.StatusOK, nil, "playlist deleted")
}

// AddVideo handles PATCH /api/v1/playlists/add/{videoId}/{playlistId}. Adding
// a video already in the playlist succeeds without duplicating it.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	if err := h.Playlists.AddVideo(ctx, r.PathValue("playlistId"), user.ID, r.PathValue("videoId")); err != nil {
		respondError(ctx, w, err, "failed to add video to playlist")
		return
	}

	respond(ctx, w, http.StatusOK, nil, "video added to playlist")
}

// RemoveVideo handles PATCH /api/v1/playlists/remove/{videoId}/{playlistId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	if err := h.Playlists.RemoveVideo(ctx, r.PathValue("playlistId"), user.ID, r.PathValue("videoId")); err != nil {
		respondError(ctx, w, err, "failed to remove video from playlist")
		return
	}

	respond(ctx, w, http.StatusOK, nil, "video removed from playlist")
}

func (h PlaylistHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type playlistUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}
