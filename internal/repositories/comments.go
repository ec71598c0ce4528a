package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/query"
)

// PostgresCommentRepository provides PostgreSQL-backed persistence for
// comments on videos.
type PostgresCommentRepository struct {
	pool db.Pool
}

// NewPostgresCommentRepository constructs a comment repository backed by PostgreSQL.
func NewPostgresCommentRepository(pool db.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

// Create stores a new comment. A missing video fails the foreign key and
// surfaces as ErrNotFound.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment models.Comment) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO comments (id, video_id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, comment.ID, comment.VideoID, comment.OwnerID, comment.Content, comment.CreatedAt, comment.UpdatedAt)
	if err != nil {
		if sentinel := translatePgError(err); sentinel != nil {
			return sentinel
		}
		return fmt.Errorf("insert comment: %w", err)
	}

	return nil
}

// ListForVideo returns one page of a video's comments with commenter profiles
// and like counts, newest first.
func (r *PostgresCommentRepository) ListForVideo(ctx context.Context, videoID string, page, size int) (query.Page[models.CommentView], error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return query.Page[models.CommentView]{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	p := query.From("comments c").
		Project("c.id", "c.video_id", "c.owner_id", "c.content", "c.created_at", "c.updated_at",
			"u.id", "u.username", "u.full_name", "u.avatar",
			"(SELECT COUNT(*) FROM likes l WHERE l.comment_id = c.id) AS like_count").
		LeftJoin("users u", "u.id = c.owner_id").
		Match("c.video_id = ?", videoID).
		Sort("c.created_at DESC").
		Paginate(page, size)

	countSQL, countArgs := p.CountSQL()
	var total int64
	if err := conn.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return query.Page[models.CommentView]{}, fmt.Errorf("count comments: %w", err)
	}

	sql, args := p.SQL()
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return query.Page[models.CommentView]{}, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var views []models.CommentView
	for rows.Next() {
		var (
			view    models.CommentView
			profile ownerProfileRow
		)
		dests := []any{&view.ID, &view.VideoID, &view.OwnerID, &view.Content, &view.CreatedAt, &view.UpdatedAt}
		dests = append(dests, profile.dests()...)
		dests = append(dests, &view.LikeCount)
		if err := rows.Scan(dests...); err != nil {
			return query.Page[models.CommentView]{}, fmt.Errorf("scan comment: %w", err)
		}
		view.CommentedBy = profile.value()
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return query.Page[models.CommentView]{}, fmt.Errorf("iterate comments: %w", err)
	}

	effPage, effSize := p.Page()
	return query.NewPage(views, total, effPage, effSize), nil
}

// Update rewrites the comment content after verifying ownership and returns
// the updated record.
func (r *PostgresCommentRepository) Update(ctx context.Context, id, ownerID, content string) (models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE comments
        SET content = $3, updated_at = $4
        WHERE id = $1 AND owner_id = $2
        RETURNING id, video_id, owner_id, content, created_at, updated_at
    `, id, ownerID, content, time.Now().UTC())

	comment, err := scanComment(row)
	if errors.Is(err, ErrNotFound) {
		return models.Comment{}, r.ownershipError(ctx, conn, id, ownerID)
	}
	return comment, err
}

// Delete removes a comment and its likes after verifying ownership.
func (r *PostgresCommentRepository) Delete(ctx context.Context, id, ownerID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin delete transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM likes WHERE comment_id = $1`, id); err != nil {
		return fmt.Errorf("delete comment likes: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM comments WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.ownershipError(ctx, conn, id, ownerID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit comment delete: %w", err)
	}

	return nil
}

func (r *PostgresCommentRepository) ownershipError(ctx context.Context, conn *pgxpool.Conn, id, ownerID string) error {
	var dbOwner string
	if err := conn.QueryRow(ctx, `SELECT owner_id FROM comments WHERE id = $1`, id).Scan(&dbOwner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("select comment owner: %w", err)
	}
	if dbOwner != ownerID {
		return ErrForbidden
	}
	return ErrNotFound
}

func scanComment(row pgx.Row) (models.Comment, error) {
	var comment models.Comment
	err := row.Scan(&comment.ID, &comment.VideoID, &comment.OwnerID, &comment.Content, &comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Comment{}, ErrNotFound
		}
		return models.Comment{}, fmt.Errorf("scan comment: %w", err)
	}
	return comment, nil
}
