package handlers

import (
	"net/http"

	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
)

// LikeHandler implements the like toggle and like-derived read endpoints.
type LikeHandler struct {
	Likes LikeStore
}

// ToggleVideo handles POST /api/v1/likes/toggle/v/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetVideo, r.PathValue("videoId"))
}

// ToggleTweet handles POST /api/v1/likes/toggle/t/{tweetId}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetTweet, r.PathValue("tweetId"))
}

// ToggleComment handles POST /api/v1/likes/toggle/c/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetComment, r.PathValue("commentId"))
}

// LikedVideos handles GET /api/v1/likes/videos: the published videos the
// caller has liked.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	page, limit := pageParams(r)
	videos, err := h.Likes.LikedVideos(ctx, user.ID, page, limit)
	if err != nil {
		respondError(ctx, w, err, "failed to load liked videos")
		return
	}

	respond(ctx, w, http.StatusOK, videos, "liked videos")
}

func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, target models.LikeTarget, targetID string) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	if targetID == "" {
		badRequest(ctx, w, "target id is required")
		return
	}

	liked, err := h.Likes.Toggle(ctx, user.ID, target, targetID)
	if err != nil {
		respondError(ctx, w, err, "failed to toggle like")
		return
	}

	message := "like removed"
	if liked {
		message = "like added"
	}
	respond(ctx, w, http.StatusOK, map[string]bool{"liked": liked}, message)
}
