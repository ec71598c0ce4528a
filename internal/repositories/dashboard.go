package repositories

import (
	"context"
	"fmt"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/query"
)

// PostgresDashboardRepository aggregates channel statistics for owners.
type PostgresDashboardRepository struct {
	pool db.Pool
}

// NewPostgresDashboardRepository constructs a dashboard repository backed by PostgreSQL.
func NewPostgresDashboardRepository(pool db.Pool) *PostgresDashboardRepository {
	return &PostgresDashboardRepository{pool: pool}
}

// StatsFor computes the owner's channel totals in one round trip.
func (r *PostgresDashboardRepository) StatsFor(ctx context.Context, ownerID string) (models.ChannelStats, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var stats models.ChannelStats
	err = conn.QueryRow(ctx, `
        SELECT
            (SELECT COALESCE(SUM(views), 0) FROM videos WHERE owner_id = $1),
            (SELECT COUNT(*) FROM videos WHERE owner_id = $1),
            (SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1),
            (SELECT COUNT(*) FROM likes l JOIN videos v ON v.id = l.video_id WHERE v.owner_id = $1)
    `, ownerID).Scan(&stats.TotalViews, &stats.TotalVideos, &stats.TotalSubscribers, &stats.TotalLikes)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("select channel stats: %w", err)
	}

	return stats, nil
}

// ChannelVideos returns one page of the owner's uploads, published or not,
// newest first.
func (r *PostgresDashboardRepository) ChannelVideos(ctx context.Context, ownerID string, page, size int) (query.Page[models.VideoView], error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return query.Page[models.VideoView]{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	p := query.From("videos v").
		Project(videoViewColumns...).
		LeftJoin("users u", "u.id = v.owner_id").
		Match("v.owner_id = ?", ownerID).
		Sort("v.created_at DESC").
		Paginate(page, size)

	countSQL, countArgs := p.CountSQL()
	var total int64
	if err := conn.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return query.Page[models.VideoView]{}, fmt.Errorf("count channel videos: %w", err)
	}

	sql, args := p.SQL()
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return query.Page[models.VideoView]{}, fmt.Errorf("query channel videos: %w", err)
	}
	defer rows.Close()

	var views []models.VideoView
	for rows.Next() {
		var vr videoViewRow
		if err := rows.Scan(vr.dests()...); err != nil {
			return query.Page[models.VideoView]{}, fmt.Errorf("scan channel video: %w", err)
		}
		views = append(views, vr.value())
	}
	if err := rows.Err(); err != nil {
		return query.Page[models.VideoView]{}, fmt.Errorf("iterate channel videos: %w", err)
	}

	effPage, effSize := p.Page()
	return query.NewPage(views, total, effPage, effSize), nil
}
