package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/media"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// VideoHandler implements video upload, feed, and ownership-gated mutation
// endpoints.
type VideoHandler struct {
	Videos VideoStore
	Users  UserStore
	Media  MediaGateway

	UploadDir      string
	MaxUploadBytes int64
	NowFunc        func() time.Time
}

// List handles GET /api/v1/videos: the published feed, filterable by search
// text and owner, sortable, paginated.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, limit := pageParams(r)
	q := r.URL.Query()

	opts := repositories.VideoListOptions{
		Search:  strings.TrimSpace(q.Get("query")),
		OwnerID: strings.TrimSpace(q.Get("userId")),
		SortBy:  q.Get("sortBy"),
		SortAsc: q.Get("sortType") == "asc",
		Page:    page,
		Limit:   limit,
	}

	videos, err := h.Videos.List(ctx, opts)
	if err != nil {
		respondError(ctx, w, err, "failed to load videos")
		return
	}

	respond(ctx, w, http.StatusOK, videos, "videos")
}

// Upload handles POST /api/v1/videos. The request is multipart: title,
// description, duration, a required video file, and a required thumbnail.
func (h VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
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

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		badRequest(ctx, w, "title is required")
		return
	}

	duration := 0.0
	if v := strings.TrimSpace(r.FormValue("duration")); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 {
			badRequest(ctx, w, "duration must be a non-negative number")
			return
		}
		duration = parsed
	}

	videoPath, err := media.SaveFormFile(r, "videoFile", h.UploadDir)
	if err != nil {
		logger.Warn("video spool failed", "error", err)
		badRequest(ctx, w, "unable to read video upload")
		return
	}
	thumbPath, err := media.SaveFormFile(r, "thumbnail", h.UploadDir)
	if err != nil {
		media.RemoveTemp(videoPath)
		logger.Warn("thumbnail spool failed", "error", err)
		badRequest(ctx, w, "unable to read thumbnail upload")
		return
	}
	defer media.RemoveTemp(videoPath, thumbPath)

	if videoPath == "" || thumbPath == "" {
		badRequest(ctx, w, "videoFile and thumbnail are required")
		return
	}

	videoAsset, err := h.Media.Upload(ctx, videoPath)
	if err != nil {
		respondError(ctx, w, err, "video upload failed")
		return
	}
	thumbAsset, err := h.Media.Upload(ctx, thumbPath)
	if err != nil {
		h.discardAsset(r, videoAsset)
		respondError(ctx, w, err, "thumbnail upload failed")
		return
	}

	now := h.now()
	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     user.ID,
		VideoFile:   videoAsset.URL,
		Thumbnail:   thumbAsset.URL,
		Title:       title,
		Description: strings.TrimSpace(r.FormValue("description")),
		Duration:    duration,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		h.discardAsset(r, videoAsset)
		h.discardAsset(r, thumbAsset)
		respondError(ctx, w, err, "failed to save video")
		return
	}

	respond(ctx, w, http.StatusCreated, video, "video uploaded")
}

// Get handles GET /api/v1/videos/{videoId}: the joined single-video view. A
// successful read bumps the view counter and records watch history for the
// viewer.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	id := r.PathValue("videoId")
	video, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		respondError(ctx, w, err, "video not found")
		return
	}

	if err := h.Videos.IncrementViews(ctx, id); err != nil {
		logger.Warn("failed to bump view counter", "videoId", id, "error", err)
	} else {
		video.Views++
	}
	if err := h.Users.AppendWatchHistory(ctx, user.ID, id); err != nil {
		logger.Warn("failed to record watch history", "videoId", id, "error", err)
	}

	respond(ctx, w, http.StatusOK, video, "video")
}

// Update handles PATCH /api/v1/videos/{videoId}: title, description, and an
// optional replacement thumbnail, owner only.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	id := r.PathValue("videoId")
	update := repositories.VideoUpdate{}

	var replacedThumb string
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes())
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			badRequest(ctx, w, "invalid multipart form")
			return
		}

		if v := strings.TrimSpace(r.FormValue("title")); v != "" {
			update.Title = &v
		}
		if v := strings.TrimSpace(r.FormValue("description")); v != "" {
			update.Description = &v
		}

		thumbPath, err := media.SaveFormFile(r, "thumbnail", h.UploadDir)
		if err != nil {
			badRequest(ctx, w, "unable to read thumbnail upload")
			return
		}
		defer media.RemoveTemp(thumbPath)

		if thumbPath != "" {
			current, err := h.Videos.FindByID(ctx, id)
			if err != nil {
				respondError(ctx, w, err, "video not found")
				return
			}
			replacedThumb = current.Thumbnail

			asset, err := h.Media.Upload(ctx, thumbPath)
			if err != nil {
				respondError(ctx, w, err, "thumbnail upload failed")
				return
			}
			update.Thumbnail = &asset.URL
		}
	} else {
		var req videoUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(ctx, w, "invalid request body")
			return
		}
		update.Title = req.Title
		update.Description = req.Description
	}

	if update.Title == nil && update.Description == nil && update.Thumbnail == nil {
		badRequest(ctx, w, "nothing to update")
		return
	}

	video, err := h.Videos.Update(ctx, id, user.ID, update)
	if err != nil {
		respondError(ctx, w, err, "failed to update video")
		return
	}

	if update.Thumbnail != nil && replacedThumb != "" {
		if err := h.Media.Delete(ctx, assetKey(replacedThumb)); err != nil {
			logger.Warn("failed to delete replaced thumbnail", "url", replacedThumb, "error", err)
		}
	}

	respond(ctx, w, http.StatusOK, video, "video updated")
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	video, err := h.Videos.TogglePublish(ctx, r.PathValue("videoId"), user.ID)
	if err != nil {
		respondError(ctx, w, err, "failed to toggle publish state")
		return
	}

	respond(ctx, w, http.StatusOK, video, "publish state toggled")
}

// Delete handles DELETE /api/v1/videos/{videoId}. Dependent rows cascade in
// the same transaction; stored media objects are deleted best-effort after.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	video, err := h.Videos.Delete(ctx, r.PathValue("videoId"), user.ID)
	if err != nil {
		respondError(ctx, w, err, "failed to delete video")
		return
	}

	for _, url := range []string{video.VideoFile, video.Thumbnail} {
		if url == "" {
			continue
		}
		if err := h.Media.Delete(ctx, assetKey(url)); err != nil {
			logger.Warn("failed to delete media object", "url", url, "error", err)
		}
	}

	respond(ctx, w, http.StatusOK, video, "video deleted")
}

func (h VideoHandler) discardAsset(r *http.Request, asset *media.Asset) {
	if asset == nil {
		return
	}
	if err := h.Media.Delete(r.Context(), asset.Key); err != nil {
		logging.FromContext(r.Context()).Warn("failed to delete orphaned upload", "key", asset.Key, "error", err)
	}
}

func (h VideoHandler) maxUploadBytes() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return 256 << 20
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type videoUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}
