package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/query"
)

// likeTargetColumns maps a like target kind to its join column.
var likeTargetColumns = map[models.LikeTarget]string{
	models.LikeTargetVideo:   "video_id",
	models.LikeTargetTweet:   "tweet_id",
	models.LikeTargetComment: "comment_id",
}

// PostgresLikeRepository provides PostgreSQL-backed persistence for likes.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// Toggle flips the like for (actor, target) as one conditional server-side
// write: the CTE deletes an existing row, and the insert only fires when the
// delete removed nothing. Partial unique indexes on (liked_by, target) keep
// concurrent toggles from ever producing duplicate rows; a racing insert
// surfaces as ErrConflict. A missing target surfaces as ErrNotFound via the
// foreign key. Returns true when the like was added, false when removed.
func (r *PostgresLikeRepository) Toggle(ctx context.Context, actorID string, target models.LikeTarget, targetID string) (bool, error) {
	column, ok := likeTargetColumns[target]
	if !ok {
		return false, fmt.Errorf("unknown like target %q", target)
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	stmt := fmt.Sprintf(`
        WITH removed AS (
            DELETE FROM likes WHERE liked_by = $1 AND %s = $2 RETURNING 1
        )
        INSERT INTO likes (id, liked_by, %s, created_at)
        SELECT $3, $1, $2, $4
        WHERE NOT EXISTS (SELECT 1 FROM removed)
    `, column, column)

	tag, err := conn.Exec(ctx, stmt, actorID, targetID, uuid.NewString(), time.Now().UTC())
	if err != nil {
		if sentinel := translatePgError(err); sentinel != nil {
			return false, sentinel
		}
		return false, fmt.Errorf("toggle like: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// CountFor returns the number of likes on a single target.
func (r *PostgresLikeRepository) CountFor(ctx context.Context, target models.LikeTarget, targetID string) (int64, error) {
	column, ok := likeTargetColumns[target]
	if !ok {
		return 0, fmt.Errorf("unknown like target %q", target)
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var count int64
	row := conn.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM likes WHERE %s = $1`, column), targetID)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}

	return count, nil
}

// LikedVideos returns the published videos the user has liked, newest like
// first, joined with owner profiles and counts.
func (r *PostgresLikeRepository) LikedVideos(ctx context.Context, userID string, page, size int) (query.Page[models.VideoView], error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return query.Page[models.VideoView]{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	p := query.From("likes lk").
		Project(videoViewColumns...).
		LeftJoin("videos v", "v.id = lk.video_id").
		LeftJoin("users u", "u.id = v.owner_id").
		Match("lk.liked_by = ?", userID).
		Match("lk.video_id IS NOT NULL").
		Match("v.is_published = ?", true).
		Sort("lk.created_at DESC").
		Paginate(page, size)

	countSQL, countArgs := p.CountSQL()
	var total int64
	if err := conn.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return query.Page[models.VideoView]{}, fmt.Errorf("count liked videos: %w", err)
	}

	sql, args := p.SQL()
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return query.Page[models.VideoView]{}, fmt.Errorf("query liked videos: %w", err)
	}
	defer rows.Close()

	var views []models.VideoView
	for rows.Next() {
		var vr videoViewRow
		if err := rows.Scan(vr.dests()...); err != nil {
			return query.Page[models.VideoView]{}, fmt.Errorf("scan liked video: %w", err)
		}
		views = append(views, vr.value())
	}
	if err := rows.Err(); err != nil {
		return query.Page[models.VideoView]{}, fmt.Errorf("iterate liked videos: %w", err)
	}

	effPage, effSize := p.Page()
	return query.NewPage(views, total, effPage, effSize), nil
}
