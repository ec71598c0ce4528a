package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/query"
	"github.com/cliptube/backend/internal/repositories"
)

type fakeVideoStore struct {
	videos map[string]models.Video
	views  map[string]int
}

func newFakeVideoStore() *fakeVideoStore {
	return &fakeVideoStore{videos: make(map[string]models.Video), views: make(map[string]int)}
}

func (s *fakeVideoStore) Create(_ context.Context, video models.Video) error {
	s.videos[video.ID] = video
	return nil
}

func (s *fakeVideoStore) FindByID(_ context.Context, id string) (models.VideoView, error) {
	video, ok := s.videos[id]
	if !ok {
		return models.VideoView{}, repositories.ErrNotFound
	}
	return models.VideoView{Video: video}, nil
}

func (s *fakeVideoStore) List(_ context.Context, opts repositories.VideoListOptions) (query.Page[models.VideoView], error) {
	var views []models.VideoView
	for _, v := range s.videos {
		if v.IsPublished {
			views = append(views, models.VideoView{Video: v})
		}
	}
	return query.NewPage(views, int64(len(views)), opts.Page, opts.Limit), nil
}

func (s *fakeVideoStore) IncrementViews(_ context.Context, id string) error {
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	s.views[id]++
	return nil
}

func (s *fakeVideoStore) Update(_ context.Context, id, ownerID string, update repositories.VideoUpdate) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	if video.OwnerID != ownerID {
		return models.Video{}, repositories.ErrForbidden
	}
	if update.Title != nil {
		video.Title = *update.Title
	}
	if update.Description != nil {
		video.Description = *update.Description
	}
	if update.Thumbnail != nil {
		video.Thumbnail = *update.Thumbnail
	}
	s.videos[id] = video
	return video, nil
}

func (s *fakeVideoStore) TogglePublish(_ context.Context, id, ownerID string) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	if video.OwnerID != ownerID {
		return models.Video{}, repositories.ErrForbidden
	}
	video.IsPublished = !video.IsPublished
	s.videos[id] = video
	return video, nil
}

func (s *fakeVideoStore) Delete(_ context.Context, id, ownerID string) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	if video.OwnerID != ownerID {
		return models.Video{}, repositories.ErrForbidden
	}
	delete(s.videos, id)
	return video, nil
}

func authedRequest(method, target string, user models.User) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(middleware.WithUser(req.Context(), user))
}

func TestVideoHandlerGetRecordsViewAndHistory(t *testing.T) {
	users := newFakeUserStore()
	videos := newFakeVideoStore()
	viewer := seedUser(t, users, "viewer", "password123")
	videos.videos["vid-1"] = models.Video{ID: "vid-1", OwnerID: "owner", Title: "First", IsPublished: true}

	handler := VideoHandler{Videos: videos, Users: users}

	req := authedRequest(http.MethodGet, "/api/v1/videos/vid-1", viewer)
	req.SetPathValue("videoId", "vid-1")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if videos.views["vid-1"] != 1 {
		t.Fatalf("expected view counter bump, got %d", videos.views["vid-1"])
	}
	if len(users.history) != 1 || users.history[0] != viewer.ID+":vid-1" {
		t.Fatalf("expected watch history entry, got %v", users.history)
	}

	env := decodeEnvelope(t, rec.Body)
	var view models.VideoView
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode video view: %v", err)
	}
	if view.Views != 1 {
		t.Fatalf("expected returned view to include the bump, got %d", view.Views)
	}
}

func TestVideoHandlerGetMissing(t *testing.T) {
	users := newFakeUserStore()
	viewer := seedUser(t, users, "viewer", "password123")
	handler := VideoHandler{Videos: newFakeVideoStore(), Users: users}

	req := authedRequest(http.MethodGet, "/api/v1/videos/nope", viewer)
	req.SetPathValue("videoId", "nope")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
	env := decodeEnvelope(t, rec.Body)
	if env.Success || env.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestVideoHandlerTogglePublishEnforcesOwnership(t *testing.T) {
	users := newFakeUserStore()
	videos := newFakeVideoStore()
	owner := seedUser(t, users, "owner", "password123")
	intruder := seedUser(t, users, "intruder", "password123")
	videos.videos["vid-1"] = models.Video{ID: "vid-1", OwnerID: owner.ID, IsPublished: true}

	handler := VideoHandler{Videos: videos, Users: users}

	req := authedRequest(http.MethodPatch, "/api/v1/videos/toggle/publish/vid-1", intruder)
	req.SetPathValue("videoId", "vid-1")
	rec := httptest.NewRecorder()

	handler.TogglePublish(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d got %d", http.StatusForbidden, rec.Code)
	}

	req = authedRequest(http.MethodPatch, "/api/v1/videos/toggle/publish/vid-1", owner)
	req.SetPathValue("videoId", "vid-1")
	rec = httptest.NewRecorder()

	handler.TogglePublish(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if videos.videos["vid-1"].IsPublished {
		t.Fatal("expected video to be unpublished")
	}
}

func TestVideoHandlerDeleteRemovesMedia(t *testing.T) {
	users := newFakeUserStore()
	videos := newFakeVideoStore()
	gateway := &fakeMediaGateway{}
	owner := seedUser(t, users, "owner", "password123")
	videos.videos["vid-1"] = models.Video{
		ID:        "vid-1",
		OwnerID:   owner.ID,
		VideoFile: "https://cdn.test/file-key",
		Thumbnail: "https://cdn.test/thumb-key",
	}

	handler := VideoHandler{Videos: videos, Users: users, Media: gateway}

	req := authedRequest(http.MethodDelete, "/api/v1/videos/vid-1", owner)
	req.SetPathValue("videoId", "vid-1")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if len(gateway.deleted) != 2 {
		t.Fatalf("expected 2 media deletes, got %v", gateway.deleted)
	}
}
