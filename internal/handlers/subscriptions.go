package handlers

import (
	"net/http"

	"github.com/cliptube/backend/internal/middleware"
)

// SubscriptionHandler implements the channel subscription endpoints.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId}: subscribe if not
// subscribed, unsubscribe otherwise.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		respond(ctx, w, http.StatusUnauthorized, nil, "authentication required")
		return
	}

	channelID := r.PathValue("channelId")
	if channelID == "" {
		badRequest(ctx, w, "channelId is required")
		return
	}
	if channelID == user.ID {
		badRequest(ctx, w, "cannot subscribe to your own channel")
		return
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, user.ID, channelID)
	if err != nil {
		respondError(ctx, w, err, "failed to toggle subscription")
		return
	}

	message := "unsubscribed"
	if subscribed {
		message = "subscribed"
	}
	respond(ctx, w, http.StatusOK, map[string]bool{"subscribed": subscribed}, message)
}

// Subscribers handles GET /api/v1/subscriptions/c/{channelId}: the users
// subscribed to a channel.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channelID := r.PathValue("channelId")
	if channelID == "" {
		badRequest(ctx, w, "channelId is required")
		return
	}

	subs, err := h.Subscriptions.Subscribers(ctx, channelID)
	if err != nil {
		respondError(ctx, w, err, "failed to load subscribers")
		return
	}

	respond(ctx, w, http.StatusOK, subs, "subscribers")
}

// Subscribed handles GET /api/v1/subscriptions/u/{subscriberId}: the channels
// a user follows.
func (h SubscriptionHandler) Subscribed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subscriberID := r.PathValue("subscriberId")
	if subscriberID == "" {
		badRequest(ctx, w, "subscriberId is required")
		return
	}

	subs, err := h.Subscriptions.SubscribedChannels(ctx, subscriberID)
	if err != nil {
		respondError(ctx, w, err, "failed to load subscriptions")
		return
	}

	respond(ctx, w, http.StatusOK, subs, "subscribed channels")
}
