package handlers

import (
	"net/http"

	"github.com/cliptube/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Tokens        middleware.AccessTokenVerifier
	Videos        VideoStore
	Tweets        TweetStore
	Comments      CommentStore
	Likes         LikeStore
	Subscriptions SubscriptionStore
	Playlists     PlaylistStore
	Dashboard     DashboardStore
	Media         MediaGateway

	UploadDir      string
	MaxUploadBytes int64
	AuthLimiter    RateLimiter
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux. Everything
// under /api/v1 except register, login, and refresh-token requires a valid
// access token.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	users := UserHandler{
		Users:          deps.Users,
		Sessions:       deps.Sessions,
		Media:          deps.Media,
		UploadDir:      deps.UploadDir,
		MaxUploadBytes: deps.MaxUploadBytes,
		Limiter:        deps.AuthLimiter,
	}
	videos := VideoHandler{
		Videos:         deps.Videos,
		Users:          deps.Users,
		Media:          deps.Media,
		UploadDir:      deps.UploadDir,
		MaxUploadBytes: deps.MaxUploadBytes,
	}
	tweets := TweetHandler{Tweets: deps.Tweets}
	comments := CommentHandler{Comments: deps.Comments}
	likes := LikeHandler{Likes: deps.Likes}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions}
	playlists := PlaylistHandler{Playlists: deps.Playlists}
	dashboard := DashboardHandler{Dashboard: deps.Dashboard}

	authenticate := middleware.Authenticate(deps.Tokens, deps.Users)
	protect := func(h http.HandlerFunc) http.Handler {
		return authenticate(h)
	}

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.HandleFunc("POST /api/v1/users/register", users.Register)
	mux.HandleFunc("POST /api/v1/users/login", users.Login)
	mux.HandleFunc("POST /api/v1/users/refresh-token", users.RefreshToken)
	mux.Handle("POST /api/v1/users/logout", protect(users.Logout))
	mux.Handle("POST /api/v1/users/change-password", protect(users.ChangePassword))
	mux.Handle("GET /api/v1/users/me", protect(users.Me))
	mux.Handle("PATCH /api/v1/users/update-account", protect(users.UpdateAccount))
	mux.Handle("PATCH /api/v1/users/avatar", protect(users.UpdateAvatar))
	mux.Handle("PATCH /api/v1/users/cover-image", protect(users.UpdateCoverImage))
	mux.Handle("GET /api/v1/users/channel/{username}", protect(users.Channel))
	mux.Handle("GET /api/v1/users/history", protect(users.WatchHistory))

	mux.Handle("GET /api/v1/videos", protect(videos.List))
	mux.Handle("POST /api/v1/videos", protect(videos.Upload))
	mux.Handle("GET /api/v1/videos/{videoId}", protect(videos.Get))
	mux.Handle("PATCH /api/v1/videos/{videoId}", protect(videos.Update))
	mux.Handle("DELETE /api/v1/videos/{videoId}", protect(videos.Delete))
	mux.Handle("PATCH /api/v1/videos/toggle/publish/{videoId}", protect(videos.TogglePublish))

	mux.Handle("POST /api/v1/tweets", protect(tweets.Create))
	mux.Handle("GET /api/v1/tweets/user/{userId}", protect(tweets.ListForUser))
	mux.Handle("PATCH /api/v1/tweets/{tweetId}", protect(tweets.Update))
	mux.Handle("DELETE /api/v1/tweets/{tweetId}", protect(tweets.Delete))

	mux.Handle("GET /api/v1/comments/{videoId}", protect(comments.ListForVideo))
	mux.Handle("POST /api/v1/comments/{videoId}", protect(comments.Create))
	mux.Handle("PATCH /api/v1/comments/c/{commentId}", protect(comments.Update))
	mux.Handle("DELETE /api/v1/comments/c/{commentId}", protect(comments.Delete))

	mux.Handle("POST /api/v1/likes/toggle/v/{videoId}", protect(likes.ToggleVideo))
	mux.Handle("POST /api/v1/likes/toggle/t/{tweetId}", protect(likes.ToggleTweet))
	mux.Handle("POST /api/v1/likes/toggle/c/{commentId}", protect(likes.ToggleComment))
	mux.Handle("GET /api/v1/likes/videos", protect(likes.LikedVideos))

	mux.Handle("POST /api/v1/subscriptions/c/{channelId}", protect(subscriptions.Toggle))
	mux.Handle("GET /api/v1/subscriptions/c/{channelId}", protect(subscriptions.Subscribers))
	mux.Handle("GET /api/v1/subscriptions/u/{subscriberId}", protect(subscriptions.Subscribed))

	mux.Handle("POST /api/v1/playlists", protect(playlists.Create))
	mux.Handle("GET /api/v1/playlists/{playlistId}", protect(playlists.Get))
	mux.Handle("PATCH /api/v1/playlists/{playlistId}", protect(playlists.Update))
	mux.Handle("DELETE /api/v1/playlists/{playlistId}", protect(playlists.Delete))
	mux.Handle("GET /api/v1/playlists/user/{userId}", protect(playlists.ListForUser))
	mux.Handle("PATCH /api/v1/playlists/add/{videoId}/{playlistId}", protect(playlists.AddVideo))
	mux.Handle("PATCH /api/v1/playlists/remove/{videoId}/{playlistId}", protect(playlists.RemoveVideo))

	mux.Handle("GET /api/v1/dashboard/stats", protect(dashboard.Stats))
	mux.Handle("GET /api/v1/dashboard/videos", protect(dashboard.Videos))
}
