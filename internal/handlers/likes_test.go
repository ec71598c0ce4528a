package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/query"
	"github.com/cliptube/backend/internal/repositories"
)

type fakeLikeStore struct {
	likes map[string]bool
	known map[string]bool
}

func newFakeLikeStore(targetIDs ...string) *fakeLikeStore {
	known := make(map[string]bool, len(targetIDs))
	for _, id := range targetIDs {
		known[id] = true
	}
	return &fakeLikeStore{likes: make(map[string]bool), known: known}
}

func (s *fakeLikeStore) Toggle(_ context.Context, actorID string, target models.LikeTarget, targetID string) (bool, error) {
	if !s.known[targetID] {
		return false, repositories.ErrNotFound
	}
	key := actorID + ":" + string(target) + ":" + targetID
	s.likes[key] = !s.likes[key]
	return s.likes[key], nil
}

func (s *fakeLikeStore) LikedVideos(_ context.Context, _ string, page, size int) (query.Page[models.VideoView], error) {
	return query.NewPage([]models.VideoView{}, 0, page, size), nil
}

func TestLikeHandlerToggleRoundTrip(t *testing.T) {
	users := newFakeUserStore()
	fan := seedUser(t, users, "fan", "password123")
	likes := newFakeLikeStore("vid-1")
	handler := LikeHandler{Likes: likes}

	toggle := func() (bool, int) {
		req := authedRequest(http.MethodPost, "/api/v1/likes/toggle/v/vid-1", fan)
		req.SetPathValue("videoId", "vid-1")
		rec := httptest.NewRecorder()
		handler.ToggleVideo(rec, req)

		env := decodeEnvelope(t, rec.Body)
		var data map[string]bool
		if err := json.Unmarshal(env.Data, &data); err != nil {
			t.Fatalf("decode toggle data: %v", err)
		}
		return data["liked"], rec.Code
	}

	liked, code := toggle()
	if code != http.StatusOK || !liked {
		t.Fatalf("expected first toggle to like (status %d, liked %v)", code, liked)
	}

	liked, code = toggle()
	if code != http.StatusOK || liked {
		t.Fatalf("expected second toggle to unlike (status %d, liked %v)", code, liked)
	}
}

func TestLikeHandlerToggleMissingTarget(t *testing.T) {
	users := newFakeUserStore()
	fan := seedUser(t, users, "fan", "password123")
	handler := LikeHandler{Likes: newFakeLikeStore()}

	req := authedRequest(http.MethodPost, "/api/v1/likes/toggle/t/nope", fan)
	req.SetPathValue("tweetId", "nope")
	rec := httptest.NewRecorder()

	handler.ToggleTweet(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}
