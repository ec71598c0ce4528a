package models

import "time"

// User represents an account within the ClipTube platform. The password hash
// and refresh token never serialize into API responses.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage,omitempty"`
	Password     string    `json:"-"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Video is a published piece of media owned by exactly one user.
type Video struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	VideoFile   string    `json:"videoFile"`
	Thumbnail   string    `json:"thumbnail"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Tweet is a short text post owned by a user.
type Tweet struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Comment is attached to a video and owned by its author.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LikeTarget enumerates the entity kinds a like may attach to. Exactly one
// target column is populated per like row.
type LikeTarget string

const (
	LikeTargetVideo   LikeTarget = "video"
	LikeTargetTweet   LikeTarget = "tweet"
	LikeTargetComment LikeTarget = "comment"
)

// Subscription records that a user follows a channel (another user).
type Subscription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriberId"`
	ChannelID    string    `json:"channelId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Playlist is an ordered collection of video references owned by a user.
// A video appears at most once per playlist.
type Playlist struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	VideoIDs    []string  `json:"videoIds,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// OwnerProfile is the public slice of a user embedded in joined read views.
type OwnerProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// ChannelProfile is the aggregated public view of a user's channel.
type ChannelProfile struct {
	User
	SubscriberCount   int64 `json:"subscriberCount"`
	SubscribedToCount int64 `json:"subscribedToCount"`
	IsSubscribed      bool  `json:"isSubscribed"`
}

// VideoView is a feed entry: a video flattened with its owner profile and
// derived counts. Owner is nil when the owning account no longer resolves.
type VideoView struct {
	Video
	Owner        *OwnerProfile `json:"owner"`
	LikeCount    int64         `json:"likeCount"`
	CommentCount int64         `json:"commentCount"`
}

// TweetView is a tweet with its derived like count.
type TweetView struct {
	Tweet
	LikeCount int64 `json:"likeCount"`
}

// CommentView is a comment flattened with the commenter's public profile.
type CommentView struct {
	Comment
	CommentedBy *OwnerProfile `json:"commentedBy"`
	LikeCount   int64         `json:"likeCount"`
}

// WatchHistoryEntry is a watched video joined with its owner, newest first.
type WatchHistoryEntry struct {
	VideoView
	WatchedAt time.Time `json:"watchedAt"`
}

// SubscriptionView is a subscription edge flattened with one user profile:
// the subscriber when listing a channel's audience, the channel when listing
// what a user follows.
type SubscriptionView struct {
	Subscription
	Profile *OwnerProfile `json:"profile"`
}

// PlaylistView is a playlist flattened with its owner and resolved videos.
type PlaylistView struct {
	Playlist
	Owner  *OwnerProfile `json:"owner"`
	Videos []VideoView   `json:"videos"`
}

// ChannelStats aggregates dashboard numbers for a channel owner.
type ChannelStats struct {
	TotalViews       int64 `json:"totalViews"`
	TotalVideos      int64 `json:"totalVideos"`
	TotalSubscribers int64 `json:"totalSubscribers"`
	TotalLikes       int64 `json:"totalLikes"`
}
