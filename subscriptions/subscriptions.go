package subscriptions

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("subscription not found")
	ErrDuplicate = errors.New("subscription already exists")
)

// Subscription links a subscriber account to the channel (account) it follows.
type Subscription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriberId"`
	ChannelID    string    `json:"channelId"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Repo interface {
	Find(ctx context.Context, subscriberID, channelID string) (*Subscription, error)
	// Create assigns ID and CreatedAt when unset. Returns ErrDuplicate if the pair exists.
	Create(ctx context.Context, sub *Subscription) (*Subscription, error)
	Delete(ctx context.Context, id string) error
	ListByChannel(ctx context.Context, channelID string) ([]*Subscription, error)
	ListBySubscriber(ctx context.Context, subscriberID string) ([]*Subscription, error)
	CountByChannel(ctx context.Context, channelID string) (int, error)
	CountBySubscriber(ctx context.Context, subscriberID string) (int, error)
}
