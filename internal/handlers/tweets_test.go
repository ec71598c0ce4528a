package handlers

import (
	"bytes"
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

type fakeTweetStore struct {
	tweets map[string]models.Tweet
}

func newFakeTweetStore() *fakeTweetStore {
	return &fakeTweetStore{tweets: make(map[string]models.Tweet)}
}

func (s *fakeTweetStore) Create(_ context.Context, tweet models.Tweet) error {
	s.tweets[tweet.ID] = tweet
	return nil
}

func (s *fakeTweetStore) ListForUser(_ context.Context, ownerID string, page, size int) (query.Page[models.TweetView], error) {
	var views []models.TweetView
	for _, tw := range s.tweets {
		if tw.OwnerID == ownerID {
			views = append(views, models.TweetView{Tweet: tw})
		}
	}
	return query.NewPage(views, int64(len(views)), page, size), nil
}

func (s *fakeTweetStore) Update(_ context.Context, id, ownerID, content string) (models.Tweet, error) {
	tweet, ok := s.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	if tweet.OwnerID != ownerID {
		return models.Tweet{}, repositories.ErrForbidden
	}
	tweet.Content = content
	s.tweets[id] = tweet
	return tweet, nil
}

func (s *fakeTweetStore) Delete(_ context.Context, id, ownerID string) error {
	tweet, ok := s.tweets[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if tweet.OwnerID != ownerID {
		return repositories.ErrForbidden
	}
	delete(s.tweets, id)
	return nil
}

func TestTweetHandlerCreate(t *testing.T) {
	users := newFakeUserStore()
	author := seedUser(t, users, "author", "password123")
	store := newFakeTweetStore()
	handler := TweetHandler{Tweets: store}

	body, _ := json.Marshal(tweetRequest{Content: "hello world"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tweets", bytes.NewReader(body))
	req = req.WithContext(middleware.WithUser(req.Context(), author))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if len(store.tweets) != 1 {
		t.Fatalf("expected 1 stored tweet, got %d", len(store.tweets))
	}
	for _, tw := range store.tweets {
		if tw.OwnerID != author.ID || tw.Content != "hello world" {
			t.Fatalf("unexpected stored tweet: %+v", tw)
		}
	}
}

func TestTweetHandlerCreateRejectsEmptyContent(t *testing.T) {
	users := newFakeUserStore()
	author := seedUser(t, users, "author", "password123")
	handler := TweetHandler{Tweets: newFakeTweetStore()}

	body, _ := json.Marshal(tweetRequest{Content: "   "})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tweets", bytes.NewReader(body))
	req = req.WithContext(middleware.WithUser(req.Context(), author))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestTweetHandlerUpdateEnforcesOwnership(t *testing.T) {
	users := newFakeUserStore()
	author := seedUser(t, users, "author", "password123")
	intruder := seedUser(t, users, "intruder", "password123")
	store := newFakeTweetStore()
	store.tweets["tw-1"] = models.Tweet{ID: "tw-1", OwnerID: author.ID, Content: "original"}
	handler := TweetHandler{Tweets: store}

	body, _ := json.Marshal(tweetRequest{Content: "hijacked"})
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/tweets/tw-1", bytes.NewReader(body))
	req = req.WithContext(middleware.WithUser(req.Context(), intruder))
	req.SetPathValue("tweetId", "tw-1")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d got %d", http.StatusForbidden, rec.Code)
	}
	if store.tweets["tw-1"].Content != "original" {
		t.Fatal("expected tweet content unchanged")
	}
}
