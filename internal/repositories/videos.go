package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/query"
)

// videoViewColumns projects a video flattened with its owner's public profile
// and derived like/comment counts. Requires "videos v" joined with "users u".
var videoViewColumns = []string{
	"v.id", "v.owner_id", "v.video_file", "v.thumbnail", "v.title", "v.description",
	"v.duration", "v.views", "v.is_published", "v.created_at", "v.updated_at",
	"u.id", "u.username", "u.full_name", "u.avatar",
	"(SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id) AS like_count",
	"(SELECT COUNT(*) FROM comments c WHERE c.video_id = v.id) AS comment_count",
}

// videoViewRow buffers one scanned feed row; owner columns are nullable
// because the join is empty-safe.
type videoViewRow struct {
	view models.VideoView

	ownerID       sql.NullString
	ownerUsername sql.NullString
	ownerFullName sql.NullString
	ownerAvatar   sql.NullString
}

func (r *videoViewRow) dests() []any {
	v := &r.view
	return []any{
		&v.ID, &v.OwnerID, &v.VideoFile, &v.Thumbnail, &v.Title, &v.Description,
		&v.Duration, &v.Views, &v.IsPublished, &v.CreatedAt, &v.UpdatedAt,
		&r.ownerID, &r.ownerUsername, &r.ownerFullName, &r.ownerAvatar,
		&v.LikeCount, &v.CommentCount,
	}
}

func (r *videoViewRow) value() models.VideoView {
	view := r.view
	if r.ownerID.Valid {
		view.Owner = &models.OwnerProfile{
			ID:       r.ownerID.String,
			Username: r.ownerUsername.String,
			FullName: r.ownerFullName.String,
			Avatar:   r.ownerAvatar.String,
		}
	}
	return view
}

// videoSortColumns whitelists sortable feed fields.
var videoSortColumns = map[string]string{
	"createdAt": "v.created_at",
	"views":     "v.views",
	"duration":  "v.duration",
	"title":     "v.title",
}

// VideoListOptions filters and orders the public video feed.
type VideoListOptions struct {
	Search  string
	OwnerID string
	SortBy  string
	SortAsc bool
	Page    int
	Limit   int
}

// VideoUpdate carries the owner-editable fields; nil means "leave unchanged".
type VideoUpdate struct {
	Title       *string
	Description *string
	Thumbnail   *string
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, video_file, thumbnail, title, description, duration, views, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, video.ID, video.OwnerID, video.VideoFile, video.Thumbnail, video.Title, video.Description,
		video.Duration, video.Views, video.IsPublished, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		if sentinel := translatePgError(err); sentinel != nil {
			return sentinel
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID fetches a single video joined with its owner profile and counts.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.VideoView, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoView{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	sql, args := query.From("videos v").
		Project(videoViewColumns...).
		LeftJoin("users u", "u.id = v.owner_id").
		Match("v.id = ?", id).
		SQL()

	var vr videoViewRow
	if err := conn.QueryRow(ctx, sql, args...).Scan(vr.dests()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VideoView{}, ErrNotFound
		}
		return models.VideoView{}, fmt.Errorf("select video: %w", err)
	}

	return vr.value(), nil
}

// List returns one page of the published video feed, joined with owner
// profiles and derived counts.
func (r *PostgresVideoRepository) List(ctx context.Context, opts VideoListOptions) (query.Page[models.VideoView], error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return query.Page[models.VideoView]{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	p := query.From("videos v").
		Project(videoViewColumns...).
		LeftJoin("users u", "u.id = v.owner_id").
		Match("v.is_published = ?", true)

	if opts.Search != "" {
		p.Match("(v.title ILIKE ? OR v.description ILIKE ?)", "%"+opts.Search+"%", "%"+opts.Search+"%")
	}
	if opts.OwnerID != "" {
		p.Match("v.owner_id = ?", opts.OwnerID)
	}

	sortCol, ok := videoSortColumns[opts.SortBy]
	if !ok {
		sortCol = "v.created_at"
	}
	dir := "DESC"
	if opts.SortAsc {
		dir = "ASC"
	}
	p.Sort(sortCol + " " + dir).Paginate(opts.Page, opts.Limit)

	return r.queryPage(ctx, conn, p)
}

// IncrementViews bumps the view counter atomically.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Update applies the owner-editable fields after verifying ownership and
// returns the updated record.
func (r *PostgresVideoRepository) Update(ctx context.Context, id, ownerID string, update VideoUpdate) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE videos
        SET title = COALESCE($3, title),
            description = COALESCE($4, description),
            thumbnail = COALESCE($5, thumbnail),
            updated_at = $6
        WHERE id = $1 AND owner_id = $2
        RETURNING id, owner_id, video_file, thumbnail, title, description, duration, views, is_published, created_at, updated_at
    `, id, ownerID, update.Title, update.Description, update.Thumbnail, time.Now().UTC())

	video, err := scanVideo(row)
	if errors.Is(err, ErrNotFound) {
		return models.Video{}, r.ownershipError(ctx, conn, id, ownerID)
	}
	return video, err
}

// TogglePublish flips the published flag after verifying ownership.
func (r *PostgresVideoRepository) TogglePublish(ctx context.Context, id, ownerID string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE videos
        SET is_published = NOT is_published, updated_at = $3
        WHERE id = $1 AND owner_id = $2
        RETURNING id, owner_id, video_file, thumbnail, title, description, duration, views, is_published, created_at, updated_at
    `, id, ownerID, time.Now().UTC())

	video, err := scanVideo(row)
	if errors.Is(err, ErrNotFound) {
		return models.Video{}, r.ownershipError(ctx, conn, id, ownerID)
	}
	return video, err
}

// Delete removes a video and every dependent row (likes on the video, its
// comments and their likes, playlist entries, watch history) in a single
// transaction, so a successful delete leaves no orphans.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id, ownerID string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Video{}, fmt.Errorf("begin delete transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var dbOwner string
	if err := tx.QueryRow(ctx, `SELECT owner_id FROM videos WHERE id = $1 FOR UPDATE`, id).Scan(&dbOwner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video owner: %w", err)
	}
	if dbOwner != ownerID {
		return models.Video{}, ErrForbidden
	}

	statements := []string{
		`DELETE FROM likes WHERE comment_id IN (SELECT id FROM comments WHERE video_id = $1)`,
		`DELETE FROM likes WHERE video_id = $1`,
		`DELETE FROM comments WHERE video_id = $1`,
		`DELETE FROM playlist_videos WHERE video_id = $1`,
		`DELETE FROM watch_history WHERE video_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt, id); err != nil {
			return models.Video{}, fmt.Errorf("cascade video delete: %w", err)
		}
	}

	video, err := scanVideo(tx.QueryRow(ctx, `
        DELETE FROM videos WHERE id = $1
        RETURNING id, owner_id, video_file, thumbnail, title, description, duration, views, is_published, created_at, updated_at
    `, id))
	if err != nil {
		return models.Video{}, fmt.Errorf("delete video: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Video{}, fmt.Errorf("commit video delete: %w", err)
	}

	return video, nil
}

func (r *PostgresVideoRepository) queryPage(ctx context.Context, conn *pgxpool.Conn, p *query.Pipeline) (query.Page[models.VideoView], error) {
	countSQL, countArgs := p.CountSQL()
	var total int64
	if err := conn.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return query.Page[models.VideoView]{}, fmt.Errorf("count videos: %w", err)
	}

	sql, args := p.SQL()
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return query.Page[models.VideoView]{}, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var views []models.VideoView
	for rows.Next() {
		var vr videoViewRow
		if err := rows.Scan(vr.dests()...); err != nil {
			return query.Page[models.VideoView]{}, fmt.Errorf("scan video row: %w", err)
		}
		views = append(views, vr.value())
	}
	if err := rows.Err(); err != nil {
		return query.Page[models.VideoView]{}, fmt.Errorf("iterate videos: %w", err)
	}

	page, size := p.Page()
	return query.NewPage(views, total, page, size), nil
}

// ownershipError distinguishes "missing" from "owned by someone else" after a
// conditional write matched zero rows.
func (r *PostgresVideoRepository) ownershipError(ctx context.Context, conn *pgxpool.Conn, id, ownerID string) error {
	var dbOwner string
	if err := conn.QueryRow(ctx, `SELECT owner_id FROM videos WHERE id = $1`, id).Scan(&dbOwner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("select video owner: %w", err)
	}
	if dbOwner != ownerID {
		return ErrForbidden
	}
	return ErrNotFound
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var video models.Video
	err := row.Scan(
		&video.ID, &video.OwnerID, &video.VideoFile, &video.Thumbnail, &video.Title,
		&video.Description, &video.Duration, &video.Views, &video.IsPublished,
		&video.CreatedAt, &video.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("scan video: %w", err)
	}
	return video, nil
}
