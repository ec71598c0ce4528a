package handlers

import (
	"context"

	"github.com/cliptube/backend/internal/media"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/query"
	"github.com/cliptube/backend/internal/repositories"
)

// UserStore abstracts persistence operations for user accounts.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	UpdateAccount(ctx context.Context, id, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) (models.User, error)
	UpdateCoverImage(ctx context.Context, id, coverURL string) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	AppendWatchHistory(ctx context.Context, userID, videoID string) error
	WatchHistory(ctx context.Context, userID string, page, size int) (query.Page[models.WatchHistoryEntry], error)
}

// SessionManager owns issuance, rotation, and revocation of token pairs.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, presented string) (models.SessionTokens, error)
	Revoke(ctx context.Context, userID string) error
}

// VideoStore abstracts persistence operations for videos.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.VideoView, error)
	List(ctx context.Context, opts repositories.VideoListOptions) (query.Page[models.VideoView], error)
	IncrementViews(ctx context.Context, id string) error
	Update(ctx context.Context, id, ownerID string, update repositories.VideoUpdate) (models.Video, error)
	TogglePublish(ctx context.Context, id, ownerID string) (models.Video, error)
	Delete(ctx context.Context, id, ownerID string) (models.Video, error)
}

// TweetStore abstracts persistence operations for tweets.
type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) error
	ListForUser(ctx context.Context, ownerID string, page, size int) (query.Page[models.TweetView], error)
	Update(ctx context.Context, id, ownerID, content string) (models.Tweet, error)
	Delete(ctx context.Context, id, ownerID string) error
}

// CommentStore abstracts persistence operations for comments.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	ListForVideo(ctx context.Context, videoID string, page, size int) (query.Page[models.CommentView], error)
	Update(ctx context.Context, id, ownerID, content string) (models.Comment, error)
	Delete(ctx context.Context, id, ownerID string) error
}

// LikeStore abstracts the like toggle and like-derived reads.
type LikeStore interface {
	Toggle(ctx context.Context, actorID string, target models.LikeTarget, targetID string) (bool, error)
	LikedVideos(ctx context.Context, userID string, page, size int) (query.Page[models.VideoView], error)
}

// SubscriptionStore abstracts the subscription toggle and edge listings.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
	Subscribers(ctx context.Context, channelID string) ([]models.SubscriptionView, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]models.SubscriptionView, error)
}

// PlaylistStore abstracts persistence operations for playlists.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.PlaylistView, error)
	ListForUser(ctx context.Context, ownerID string) ([]models.Playlist, error)
	Update(ctx context.Context, id, ownerID string, update repositories.PlaylistUpdate) (models.Playlist, error)
	Delete(ctx context.Context, id, ownerID string) error
	AddVideo(ctx context.Context, playlistID, ownerID, videoID string) error
	RemoveVideo(ctx context.Context, playlistID, ownerID, videoID string) error
}

// DashboardStore abstracts the channel statistics reads.
type DashboardStore interface {
	StatsFor(ctx context.Context, ownerID string) (models.ChannelStats, error)
	ChannelVideos(ctx context.Context, ownerID string, page, size int) (query.Page[models.VideoView], error)
}

// MediaGateway abstracts uploads to and deletes from the object store.
type MediaGateway interface {
	Upload(ctx context.Context, localPath string) (*media.Asset, error)
	Delete(ctx context.Context, key string) error
}
