package handlers

import (
	"net/http"

	"github.com/cliptube/backend/internal/middleware"
)

// DashboardHandler implements the channel owner's dashboard endpoints.
type DashboardHandler struct {
	Dashboard DashboardStore
}

// Stats handles GET /api/v1/dashboard/stats: total views, videos,
// subscribers, and likes for the caller's channel.
func (h DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	stats, err := h.Dashboard.StatsFor(ctx, user.ID)
	if err != nil {
		respondError(ctx, w, err, "failed to load channel stats")
		return
	}

	respond(ctx, w, http.StatusOK, stats, "channel stats")
}

// Videos handles GET /api/v1/dashboard/videos: the caller's uploads including
// unpublished drafts.
func (h DashboardHandler) Videos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	page, limit := pageParams(r)
	videos, err := h.Dashboard.ChannelVideos(ctx, user.ID, page, limit)
	if err != nil {
		respondError(ctx, w, err, "failed to load channel videos")
		return
	}

	respond(ctx, w, http.StatusOK, videos, "channel videos")
}
