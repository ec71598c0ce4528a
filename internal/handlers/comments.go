package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
)

// CommentHandler implements the per-video comment endpoints.
type CommentHandler struct {
	Comments CommentStore
	NowFunc  func() time.Time
}

// ListForVideo handles GET /api/v1/comments/{videoId}.
func (h CommentHandler) ListForVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID := r.PathValue("videoId")
	if videoID == "" {
		badRequest(ctx, w, "videoId is required")
		return
	}

	page, limit := pageParams(r)
	comments, err := h.Comments.ListForVideo(ctx, videoID, page, limit)
	if err != nil {
		respondError(ctx, w, err, "failed to load comments")
		return
	}

	respond(ctx, w, http.StatusOK, comments, "comments")
}

// Create handles POST /api/v1/comments/{videoId}.
func (h CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(ctx, w, "invalid request body")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		badRequest(ctx, w, "content is required")
		return
	}

	now := h.now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   r.PathValue("videoId"),
		OwnerID:   user.ID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Comments.Create(ctx, comment); err != nil {
		respondError(ctx, w, err, "failed to create comment")
		return
	}

	respond(ctx, w, http.StatusCreated, comment, "comment created")
}

// Update handles PATCH /api/v1/comments/c/{commentId}, owner only.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(ctx, w, "invalid request body")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		badRequest(ctx, w, "content is required")
		return
	}

	comment, err := h.Comments.Update(ctx, r.PathValue("commentId"), user.ID, content)
	if err != nil {
		respondError(ctx, w, err, "failed to update comment")
		return
	}

	respond(ctx, w, http.StatusOK, comment, "comment updated")
}

// Delete handles DELETE /api/v1/comments/c/{commentId}, owner only.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	if err := h.Comments.Delete(ctx, r.PathValue("commentId"), user.ID); err != nil {
		respondError(ctx, w, err, "failed to delete comment")
		return
	}

	respond(ctx, w, http.StatusOK, nil, "comment deleted")
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type commentRequest struct {
	Content string `json:"content"`
}
