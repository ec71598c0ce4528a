package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/query"
)

const userColumns = `id, username, email, full_name, avatar, cover_image, password_hash, COALESCE(refresh_token, ''), created_at, updated_at`

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, avatar, cover_image, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.FullName, user.Avatar, user.CoverImage, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if sentinel := translatePgError(err); sentinel != nil {
			return sentinel
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by primary key.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

// FindByIdentifier fetches a user by username or email, whichever matches.
func (r *PostgresUserRepository) FindByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	return r.findOne(ctx, `WHERE username = $1 OR email = $1`, identifier)
}

// Exists reports whether a user with the given username or email is already registered.
func (r *PostgresUserRepository) Exists(ctx context.Context, username, email string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	row := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`, username, email)
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check user existence: %w", err)
	}

	return exists, nil
}

// UpdateAccount overwrites the mutable profile fields and returns the updated record.
func (r *PostgresUserRepository) UpdateAccount(ctx context.Context, id, fullName, email string) (models.User, error) {
	return r.updateReturning(ctx, `
        UPDATE users
        SET full_name = $2, email = $3, updated_at = $4
        WHERE id = $1
        RETURNING `+userColumns, id, fullName, email, time.Now().UTC())
}

// UpdateAvatar swaps the stored avatar reference and returns the updated record.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) (models.User, error) {
	return r.updateReturning(ctx, `
        UPDATE users
        SET avatar = $2, updated_at = $3
        WHERE id = $1
        RETURNING `+userColumns, id, avatarURL, time.Now().UTC())
}

// UpdateCoverImage swaps the stored cover image reference and returns the updated record.
func (r *PostgresUserRepository) UpdateCoverImage(ctx context.Context, id, coverURL string) (models.User, error) {
	return r.updateReturning(ctx, `
        UPDATE users
        SET cover_image = $2, updated_at = $3
        WHERE id = $1
        RETURNING `+userColumns, id, coverURL, time.Now().UTC())
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1
    `, id, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SetRefreshToken stores the single active refresh token for the user,
// overwriting any previous value.
func (r *PostgresUserRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE users SET refresh_token = $2 WHERE id = $1`, userID, token)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// RefreshTokenFor returns the currently stored refresh token, or "" when the
// session was revoked or the user no longer exists. A missing user is not an
// error here: the caller treats an empty token as an unusable session.
func (r *PostgresUserRepository) RefreshTokenFor(ctx context.Context, userID string) (string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var token string
	row := conn.QueryRow(ctx, `SELECT COALESCE(refresh_token, '') FROM users WHERE id = $1`, userID)
	if err := row.Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("select refresh token: %w", err)
	}

	return token, nil
}

// ClearRefreshToken revokes the stored refresh token. Clearing a user with no
// active token succeeds.
func (r *PostgresUserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `UPDATE users SET refresh_token = NULL WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	return nil
}

// ChannelProfile builds the aggregated public view of a channel: the user's
// profile joined with subscriber counts and whether the viewer subscribes.
// Credential columns are never projected.
func (r *PostgresUserRepository) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	sql, args := query.From("users u").
		Project("u.id", "u.username", "u.email", "u.full_name", "u.avatar", "u.cover_image", "u.created_at", "u.updated_at").
		ProjectExpr(`(SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id) AS subscriber_count`).
		ProjectExpr(`(SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS subscribed_to_count`).
		ProjectExpr(`EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = ?) AS is_subscribed`, viewerID).
		Match("u.username = ?", username).
		SQL()

	var profile models.ChannelProfile
	row := conn.QueryRow(ctx, sql, args...)
	err = row.Scan(
		&profile.ID, &profile.Username, &profile.Email, &profile.FullName,
		&profile.Avatar, &profile.CoverImage, &profile.CreatedAt, &profile.UpdatedAt,
		&profile.SubscriberCount, &profile.SubscribedToCount, &profile.IsSubscribed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChannelProfile{}, ErrNotFound
		}
		return models.ChannelProfile{}, fmt.Errorf("select channel profile: %w", err)
	}

	return profile, nil
}

// AppendWatchHistory records that the user watched the video. Rewatching
// refreshes the timestamp instead of duplicating the entry.
func (r *PostgresUserRepository) AppendWatchHistory(ctx context.Context, userID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id, watched_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, video_id) DO UPDATE SET watched_at = EXCLUDED.watched_at
    `, userID, videoID, time.Now().UTC())
	if err != nil {
		if sentinel := translatePgError(err); sentinel != nil {
			return sentinel
		}
		return fmt.Errorf("append watch history: %w", err)
	}

	return nil
}

// WatchHistory returns the user's watched videos, newest first, each joined
// with the video and its owner profile. Join depth is fixed at two levels
// (history -> video -> owner).
func (r *PostgresUserRepository) WatchHistory(ctx context.Context, userID string, page, size int) (query.Page[models.WatchHistoryEntry], error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return query.Page[models.WatchHistoryEntry]{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	p := query.From("watch_history h").
		Project("h.watched_at").
		Project(videoViewColumns...).
		LeftJoin("videos v", "v.id = h.video_id").
		LeftJoin("users u", "u.id = v.owner_id").
		Match("h.user_id = ?", userID).
		Match("v.id IS NOT NULL").
		Sort("h.watched_at DESC").
		Paginate(page, size)

	countSQL, countArgs := p.CountSQL()
	var total int64
	if err := conn.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return query.Page[models.WatchHistoryEntry]{}, fmt.Errorf("count watch history: %w", err)
	}

	sql, args := p.SQL()
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return query.Page[models.WatchHistoryEntry]{}, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	var entries []models.WatchHistoryEntry
	for rows.Next() {
		var (
			entry models.WatchHistoryEntry
			vr    videoViewRow
		)
		dests := append([]any{&entry.WatchedAt}, vr.dests()...)
		if err := rows.Scan(dests...); err != nil {
			return query.Page[models.WatchHistoryEntry]{}, fmt.Errorf("scan watch history entry: %w", err)
		}
		entry.VideoView = vr.value()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return query.Page[models.WatchHistoryEntry]{}, fmt.Errorf("iterate watch history: %w", err)
	}

	effPage, effSize := p.Page()
	return query.NewPage(entries, total, effPage, effSize), nil
}

func (r *PostgresUserRepository) findOne(ctx context.Context, where string, args ...any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users `+where, args...)
	return scanUser(row)
}

func (r *PostgresUserRepository) updateReturning(ctx context.Context, sql string, args ...any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, sql, args...))
	if err != nil {
		if sentinel := translatePgError(err); sentinel != nil {
			return models.User{}, sentinel
		}
		return models.User{}, err
	}

	return user, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.FullName, &user.Avatar,
		&user.CoverImage, &user.Password, &user.RefreshToken, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}
