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
)

// PlaylistUpdate carries the owner-editable fields; nil means "leave unchanged".
type PlaylistUpdate struct {
	Name        *string
	Description *string
}

// PostgresPlaylistRepository provides PostgreSQL-backed persistence for
// playlists and their ordered video entries.
type PostgresPlaylistRepository struct {
	pool db.Pool
}

// NewPostgresPlaylistRepository constructs a playlist repository backed by PostgreSQL.
func NewPostgresPlaylistRepository(pool db.Pool) *PostgresPlaylistRepository {
	return &PostgresPlaylistRepository{pool: pool}
}

// Create stores a new playlist.
func (r *PostgresPlaylistRepository) Create(ctx context.Context, playlist models.Playlist) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO playlists (id, owner_id, name, description, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, playlist.CreatedAt, playlist.UpdatedAt)
	if err != nil {
		if sentinel := translatePgError(err); sentinel != nil {
			return sentinel
		}
		return fmt.Errorf("insert playlist: %w", err)
	}

	return nil
}

// FindByID fetches a playlist with its owner profile and the resolved videos
// in playlist order.
func (r *PostgresPlaylistRepository) FindByID(ctx context.Context, id string) (models.PlaylistView, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.PlaylistView{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var (
		view    models.PlaylistView
		profile ownerProfileRow
	)
	dests := []any{&view.ID, &view.OwnerID, &view.Name, &view.Description, &view.CreatedAt, &view.UpdatedAt}
	err = conn.QueryRow(ctx, `
        SELECT p.id, p.owner_id, p.name, p.description, p.created_at, p.updated_at,
               u.id, u.username, u.full_name, u.avatar
        FROM playlists p
        LEFT JOIN users u ON u.id = p.owner_id
        WHERE p.id = $1
    `, id).Scan(append(dests, profile.dests()...)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PlaylistView{}, ErrNotFound
		}
		return models.PlaylistView{}, fmt.Errorf("select playlist: %w", err)
	}
	view.Owner = profile.value()

	view.Videos, err = r.entries(ctx, conn, id)
	if err != nil {
		return models.PlaylistView{}, err
	}
	for _, v := range view.Videos {
		view.VideoIDs = append(view.VideoIDs, v.ID)
	}

	return view, nil
}

// ListForUser returns every playlist owned by a user, newest first, without
// resolving video entries.
func (r *PostgresPlaylistRepository) ListForUser(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT p.id, p.owner_id, p.name, p.description, p.created_at, p.updated_at,
               COALESCE(ARRAY_AGG(pv.video_id ORDER BY pv.position) FILTER (WHERE pv.video_id IS NOT NULL), '{}')
        FROM playlists p
        LEFT JOIN playlist_videos pv ON pv.playlist_id = p.id
        WHERE p.owner_id = $1
        GROUP BY p.id
        ORDER BY p.created_at DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var playlist models.Playlist
		if err := rows.Scan(&playlist.ID, &playlist.OwnerID, &playlist.Name, &playlist.Description,
			&playlist.CreatedAt, &playlist.UpdatedAt, &playlist.VideoIDs); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}

	return playlists, nil
}

// Update applies the owner-editable fields after verifying ownership and
// returns the updated record.
func (r *PostgresPlaylistRepository) Update(ctx context.Context, id, ownerID string, update PlaylistUpdate) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var playlist models.Playlist
	err = conn.QueryRow(ctx, `
        UPDATE playlists
        SET name = COALESCE($3, name),
            description = COALESCE($4, description),
            updated_at = $5
        WHERE id = $1 AND owner_id = $2
        RETURNING id, owner_id, name, description, created_at, updated_at
    `, id, ownerID, update.Name, update.Description, time.Now().UTC()).Scan(
		&playlist.ID, &playlist.OwnerID, &playlist.Name, &playlist.Description,
		&playlist.CreatedAt, &playlist.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Playlist{}, r.ownershipError(ctx, conn, id, ownerID)
		}
		return models.Playlist{}, fmt.Errorf("update playlist: %w", err)
	}

	return playlist, nil
}

// Delete removes a playlist and its entries after verifying ownership.
func (r *PostgresPlaylistRepository) Delete(ctx context.Context, id, ownerID string) error {
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

	if _, err := tx.Exec(ctx, `DELETE FROM playlist_videos WHERE playlist_id = $1`, id); err != nil {
		return fmt.Errorf("delete playlist entries: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM playlists WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.ownershipError(ctx, conn, id, ownerID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit playlist delete: %w", err)
	}

	return nil
}

// AddVideo appends a video to the end of an owned playlist. Adding a video
// already present is a no-op, not an error.
func (r *PostgresPlaylistRepository) AddVideo(ctx context.Context, playlistID, ownerID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if err := r.ownedBy(ctx, conn, playlistID, ownerID); err != nil {
		return err
	}

	// The position subquery and ON CONFLICT keep concurrent appends from
	// colliding on the (playlist, video) pair.
	_, err = conn.Exec(ctx, `
        INSERT INTO playlist_videos (playlist_id, video_id, position, added_at)
        SELECT $1, $2, COALESCE(MAX(position), 0) + 1, $3 FROM playlist_videos WHERE playlist_id = $1
        ON CONFLICT (playlist_id, video_id) DO NOTHING
    `, playlistID, videoID, time.Now().UTC())
	if err != nil {
		if sentinel := translatePgError(err); sentinel != nil {
			return sentinel
		}
		return fmt.Errorf("add playlist video: %w", err)
	}

	return nil
}

// RemoveVideo drops a video from an owned playlist. The video must currently
// be in the playlist.
func (r *PostgresPlaylistRepository) RemoveVideo(ctx context.Context, playlistID, ownerID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if err := r.ownedBy(ctx, conn, playlistID, ownerID); err != nil {
		return err
	}

	tag, err := conn.Exec(ctx, `
        DELETE FROM playlist_videos WHERE playlist_id = $1 AND video_id = $2
    `, playlistID, videoID)
	if err != nil {
		return fmt.Errorf("remove playlist video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *PostgresPlaylistRepository) entries(ctx context.Context, conn *pgxpool.Conn, playlistID string) ([]models.VideoView, error) {
	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.video_file, v.thumbnail, v.title, v.description,
               v.duration, v.views, v.is_published, v.created_at, v.updated_at,
               u.id, u.username, u.full_name, u.avatar,
               (SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id) AS like_count,
               (SELECT COUNT(*) FROM comments c WHERE c.video_id = v.id) AS comment_count
        FROM playlist_videos pv
        JOIN videos v ON v.id = pv.video_id
        LEFT JOIN users u ON u.id = v.owner_id
        WHERE pv.playlist_id = $1
        ORDER BY pv.position
    `, playlistID)
	if err != nil {
		return nil, fmt.Errorf("query playlist videos: %w", err)
	}
	defer rows.Close()

	var views []models.VideoView
	for rows.Next() {
		var vr videoViewRow
		if err := rows.Scan(vr.dests()...); err != nil {
			return nil, fmt.Errorf("scan playlist video: %w", err)
		}
		views = append(views, vr.value())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlist videos: %w", err)
	}

	return views, nil
}

// ownedBy verifies the playlist exists and belongs to ownerID.
func (r *PostgresPlaylistRepository) ownedBy(ctx context.Context, conn *pgxpool.Conn, playlistID, ownerID string) error {
	var dbOwner string
	if err := conn.QueryRow(ctx, `SELECT owner_id FROM playlists WHERE id = $1`, playlistID).Scan(&dbOwner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("select playlist owner: %w", err)
	}
	if dbOwner != ownerID {
		return ErrForbidden
	}
	return nil
}

func (r *PostgresPlaylistRepository) ownershipError(ctx context.Context, conn *pgxpool.Conn, id, ownerID string) error {
	if err := r.ownedBy(ctx, conn, id, ownerID); err != nil {
		return err
	}
	return ErrNotFound
}
