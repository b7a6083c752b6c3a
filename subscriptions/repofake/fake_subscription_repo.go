package fakesubscriptionrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-video-server/subscriptions"
)

var _ subscriptions.Repo = (*FakeSubscriptionRepo)(nil)

type FakeSubscriptionRepo struct {
	subs map[string]*subscriptions.Subscription
	lock sync.RWMutex
}

func NewFakeSubscriptionRepo() *FakeSubscriptionRepo {
	return &FakeSubscriptionRepo{subs: make(map[string]*subscriptions.Subscription)}
}

func (r *FakeSubscriptionRepo) Find(_ context.Context, subscriberID, channelID string) (*subscriptions.Subscription, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, s := range r.subs {
		if s.SubscriberID == subscriberID && s.ChannelID == channelID {
			c := *s
			return &c, nil
		}
	}
	return nil, subscriptions.ErrNotFound
}

func (r *FakeSubscriptionRepo) Create(_ context.Context, sub *subscriptions.Subscription) (*subscriptions.Subscription, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, s := range r.subs {
		if s.SubscriberID == sub.SubscriberID && s.ChannelID == sub.ChannelID {
			return nil, subscriptions.ErrDuplicate
		}
	}
	stored := *sub
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.subs[stored.ID] = &stored
	c := stored
	return &c, nil
}

func (r *FakeSubscriptionRepo) Delete(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.subs[id]; !ok {
		return subscriptions.ErrNotFound
	}
	delete(r.subs, id)
	return nil
}

func (r *FakeSubscriptionRepo) ListByChannel(_ context.Context, channelID string) ([]*subscriptions.Subscription, error) {
	return r.list(func(s *subscriptions.Subscription) bool { return s.ChannelID == channelID }), nil
}

func (r *FakeSubscriptionRepo) ListBySubscriber(_ context.Context, subscriberID string) ([]*subscriptions.Subscription, error) {
	return r.list(func(s *subscriptions.Subscription) bool { return s.SubscriberID == subscriberID }), nil
}

func (r *FakeSubscriptionRepo) CountByChannel(ctx context.Context, channelID string) (int, error) {
	list, _ := r.ListByChannel(ctx, channelID)
	return len(list), nil
}

func (r *FakeSubscriptionRepo) CountBySubscriber(ctx context.Context, subscriberID string) (int, error) {
	list, _ := r.ListBySubscriber(ctx, subscriberID)
	return len(list), nil
}

// list returns matches oldest first, ties broken by ID.
func (r *FakeSubscriptionRepo) list(match func(*subscriptions.Subscription) bool) []*subscriptions.Subscription {
	r.lock.RLock()
	defer r.lock.RUnlock()

	out := make([]*subscriptions.Subscription, 0)
	for _, s := range r.subs {
		if match(s) {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
