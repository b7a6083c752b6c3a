package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jrsteele09/go-video-server/internal/errors"
	"github.com/jrsteele09/go-video-server/subscriptions"
)

var _ subscriptions.Repo = (*SubscriptionRepo)(nil)

const subscriptionColumns = "id, subscriber_id, channel_id, created_at"

type SubscriptionRepo struct {
	db      DBTX
	dialect Dialect
}

func NewSubscriptionRepo(db DBTX, dialect Dialect) *SubscriptionRepo {
	return &SubscriptionRepo{db: db, dialect: dialect}
}

func scanSubscription(row rowScanner) (*subscriptions.Subscription, error) {
	var s subscriptions.Subscription
	if err := row.Scan(&s.ID, &s.SubscriberID, &s.ChannelID, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepo) Find(ctx context.Context, subscriberID, channelID string) (*subscriptions.Subscription, error) {
	query := "SELECT " + subscriptionColumns + " FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2"
	sub, err := scanSubscription(r.db.QueryRowContext(ctx, r.dialect.rebind(query), subscriberID, channelID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, subscriptions.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "SubscriptionRepo.Find")
	}
	return sub, nil
}

func (r *SubscriptionRepo) Create(ctx context.Context, sub *subscriptions.Subscription) (*subscriptions.Subscription, error) {
	stored := *sub
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}

	query := "INSERT INTO subscriptions (" + subscriptionColumns + ") VALUES ($1, $2, $3, $4)"
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(query), stored.ID, stored.SubscriberID, stored.ChannelID, stored.CreatedAt)
	if isUniqueViolation(err) {
		return nil, subscriptions.ErrDuplicate
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "SubscriptionRepo.Create")
	}
	return &stored, nil
}

func (r *SubscriptionRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, r.dialect.rebind("DELETE FROM subscriptions WHERE id = $1"), id)
	if err != nil {
		return apperrors.Wrapf(err, "SubscriptionRepo.Delete")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrapf(err, "SubscriptionRepo.Delete RowsAffected")
	}
	if affected == 0 {
		return subscriptions.ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepo) ListByChannel(ctx context.Context, channelID string) ([]*subscriptions.Subscription, error) {
	return r.list(ctx, "channel_id", channelID)
}

func (r *SubscriptionRepo) ListBySubscriber(ctx context.Context, subscriberID string) ([]*subscriptions.Subscription, error) {
	return r.list(ctx, "subscriber_id", subscriberID)
}

func (r *SubscriptionRepo) CountByChannel(ctx context.Context, channelID string) (int, error) {
	return r.count(ctx, "channel_id", channelID)
}

func (r *SubscriptionRepo) CountBySubscriber(ctx context.Context, subscriberID string) (int, error) {
	return r.count(ctx, "subscriber_id", subscriberID)
}

// column is always one of the fixed names above, never caller input.
func (r *SubscriptionRepo) list(ctx context.Context, column, value string) ([]*subscriptions.Subscription, error) {
	query := "SELECT " + subscriptionColumns + " FROM subscriptions WHERE " + column + " = $1 ORDER BY created_at, id"
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), value)
	if err != nil {
		return nil, apperrors.Wrapf(err, "SubscriptionRepo.list %s", column)
	}
	defer rows.Close()

	var out []*subscriptions.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, apperrors.Wrapf(err, "SubscriptionRepo.list scan")
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrapf(err, "SubscriptionRepo.list rows")
	}
	return out, nil
}

func (r *SubscriptionRepo) count(ctx context.Context, column, value string) (int, error) {
	query := "SELECT COUNT(*) FROM subscriptions WHERE " + column + " = $1"
	var n int
	if err := r.db.QueryRowContext(ctx, r.dialect.rebind(query), value).Scan(&n); err != nil {
		return 0, apperrors.Wrapf(err, "SubscriptionRepo.count %s", column)
	}
	return n, nil
}
