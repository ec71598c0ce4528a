package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
)

// PostgresSubscriptionRepository provides PostgreSQL-backed persistence for
// channel subscriptions.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Toggle flips the (subscriber, channel) edge with the same conditional-write
// shape as like toggles. The unique index on the pair rules out duplicates
// under concurrent toggles; an unknown channel fails the foreign key and
// surfaces as ErrNotFound. Returns true when subscribed, false when
// unsubscribed.
func (r *PostgresSubscriptionRepository) Toggle(ctx context.Context, subscriberID, channelID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        WITH removed AS (
            DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2 RETURNING 1
        )
        INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
        SELECT $3, $1, $2, $4
        WHERE NOT EXISTS (SELECT 1 FROM removed)
    `, subscriberID, channelID, uuid.NewString(), time.Now().UTC())
	if err != nil {
		if sentinel := translatePgError(err); sentinel != nil {
			return false, sentinel
		}
		return false, fmt.Errorf("toggle subscription: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Subscribers lists the users subscribed to a channel, newest first.
func (r *PostgresSubscriptionRepository) Subscribers(ctx context.Context, channelID string) ([]models.SubscriptionView, error) {
	return r.list(ctx, `
        SELECT s.id, s.subscriber_id, s.channel_id, s.created_at,
               u.id, u.username, u.full_name, u.avatar
        FROM subscriptions s
        LEFT JOIN users u ON u.id = s.subscriber_id
        WHERE s.channel_id = $1
        ORDER BY s.created_at DESC
    `, channelID)
}

// SubscribedChannels lists the channels a user follows, newest first.
func (r *PostgresSubscriptionRepository) SubscribedChannels(ctx context.Context, subscriberID string) ([]models.SubscriptionView, error) {
	return r.list(ctx, `
        SELECT s.id, s.subscriber_id, s.channel_id, s.created_at,
               u.id, u.username, u.full_name, u.avatar
        FROM subscriptions s
        LEFT JOIN users u ON u.id = s.channel_id
        WHERE s.subscriber_id = $1
        ORDER BY s.created_at DESC
    `, subscriberID)
}

func (r *PostgresSubscriptionRepository) list(ctx context.Context, sql, id string) ([]models.SubscriptionView, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var views []models.SubscriptionView
	for rows.Next() {
		var (
			view    models.SubscriptionView
			profile ownerProfileRow
		)
		dests := []any{&view.ID, &view.SubscriberID, &view.ChannelID, &view.CreatedAt}
		if err := rows.Scan(append(dests, profile.dests()...)...); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		view.Profile = profile.value()
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	return views, nil
}
