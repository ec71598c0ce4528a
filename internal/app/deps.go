package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/config"
	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/handlers"
	"github.com/cliptube/backend/internal/media"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/repositories"
)

// buildDependencies assembles the repository, session, and media
// collaborators behind the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	users := repositories.NewPostgresUserRepository(pool)

	tokens, err := auth.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		return handlers.Dependencies{}, err
	}
	sessions := auth.NewManager(tokens, users)

	gateway, err := media.NewS3Gateway(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, err
	}

	limiter := middleware.NewIPRateLimiter(cfg.AuthRatePerMin, time.Minute, cfg.AuthRateBurst, 15*time.Minute)

	return handlers.Dependencies{
		Users:         users,
		Sessions:      sessions,
		Tokens:        tokens,
		Videos:        repositories.NewPostgresVideoRepository(pool),
		Tweets:        repositories.NewPostgresTweetRepository(pool),
		Comments:      repositories.NewPostgresCommentRepository(pool),
		Likes:         repositories.NewPostgresLikeRepository(pool),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		Playlists:     repositories.NewPostgresPlaylistRepository(pool),
		Dashboard:     repositories.NewPostgresDashboardRepository(pool),
		Media:         gateway,

		UploadDir:      cfg.UploadTempDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		AuthLimiter:    limiter,
	}, nil
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
