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

// PostgresTweetRepository provides PostgreSQL-backed persistence for tweets.
type PostgresTweetRepository struct {
	pool db.Pool
}

// NewPostgresTweetRepository constructs a tweet repository backed by PostgreSQL.
func NewPostgresTweetRepository(pool db.Pool) *PostgresTweetRepository {
	return &PostgresTweetRepository{pool: pool}
}

// Create stores a new tweet.
func (r *PostgresTweetRepository) Create(ctx context.Context, tweet models.Tweet) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO tweets (id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, tweet.ID, tweet.OwnerID, tweet.Content, tweet.CreatedAt, tweet.UpdatedAt)
	if err != nil {
		if sentinel := translatePgError(err); sentinel != nil {
			return sentinel
		}
		return fmt.Errorf("insert tweet: %w", err)
	}

	return nil
}

// ListForUser returns one page of a user's tweets with like counts, newest
// first.
func (r *PostgresTweetRepository) ListForUser(ctx context.Context, ownerID string, page, size int) (query.Page[models.TweetView], error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return query.Page[models.TweetView]{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	p := query.From("tweets t").
		Project("t.id", "t.owner_id", "t.content", "t.created_at", "t.updated_at",
			"(SELECT COUNT(*) FROM likes l WHERE l.tweet_id = t.id) AS like_count").
		Match("t.owner_id = ?", ownerID).
		Sort("t.created_at DESC").
		Paginate(page, size)

	countSQL, countArgs := p.CountSQL()
	var total int64
	if err := conn.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return query.Page[models.TweetView]{}, fmt.Errorf("count tweets: %w", err)
	}

	sql, args := p.SQL()
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return query.Page[models.TweetView]{}, fmt.Errorf("query tweets: %w", err)
	}
	defer rows.Close()

	var views []models.TweetView
	for rows.Next() {
		var view models.TweetView
		if err := rows.Scan(&view.ID, &view.OwnerID, &view.Content, &view.CreatedAt, &view.UpdatedAt, &view.LikeCount); err != nil {
			return query.Page[models.TweetView]{}, fmt.Errorf("scan tweet: %w", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return query.Page[models.TweetView]{}, fmt.Errorf("iterate tweets: %w", err)
	}

	effPage, effSize := p.Page()
	return query.NewPage(views, total, effPage, effSize), nil
}

// Update rewrites the tweet content after verifying ownership and returns the
// updated record.
func (r *PostgresTweetRepository) Update(ctx context.Context, id, ownerID, content string) (models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Tweet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE tweets
        SET content = $3, updated_at = $4
        WHERE id = $1 AND owner_id = $2
        RETURNING id, owner_id, content, created_at, updated_at
    `, id, ownerID, content, time.Now().UTC())

	tweet, err := scanTweet(row)
	if errors.Is(err, ErrNotFound) {
		return models.Tweet{}, r.ownershipError(ctx, conn, id, ownerID)
	}
	return tweet, err
}

// Delete removes a tweet and its likes after verifying ownership.
func (r *PostgresTweetRepository) Delete(ctx context.Context, id, ownerID string) error {
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

	if _, err := tx.Exec(ctx, `DELETE FROM likes WHERE tweet_id = $1`, id); err != nil {
		return fmt.Errorf("delete tweet likes: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM tweets WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete tweet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.ownershipError(ctx, conn, id, ownerID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tweet delete: %w", err)
	}

	return nil
}

func (r *PostgresTweetRepository) ownershipError(ctx context.Context, conn *pgxpool.Conn, id, ownerID string) error {
	var dbOwner string
	if err := conn.QueryRow(ctx, `SELECT owner_id FROM tweets WHERE id = $1`, id).Scan(&dbOwner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("select tweet owner: %w", err)
	}
	if dbOwner != ownerID {
		return ErrForbidden
	}
	return ErrNotFound
}

func scanTweet(row pgx.Row) (models.Tweet, error) {
	var tweet models.Tweet
	err := row.Scan(&tweet.ID, &tweet.OwnerID, &tweet.Content, &tweet.CreatedAt, &tweet.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Tweet{}, ErrNotFound
		}
		return models.Tweet{}, fmt.Errorf("scan tweet: %w", err)
	}
	return tweet, nil
}
