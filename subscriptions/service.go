package subscriptions

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-video-server/internal/errors"
	"github.com/jrsteele09/go-video-server/users"
)

// Entry is one side of a subscription joined with the other account.
type Entry struct {
	ID           string             `json:"id"`
	SubscribedAt time.Time          `json:"subscribedAt"`
	Account      *users.AccountView `json:"account"`
}

// ToggleResult reports the state after a toggle.
type ToggleResult struct {
	Subscribed   bool          `json:"subscribed"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

type Service struct {
	subs     Repo
	accounts users.Repo
	nowTime  func() time.Time
}

type ServiceOption func(*Service)

func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(subs Repo, accounts users.Repo, options ...ServiceOption) (*Service, error) {
	if subs == nil {
		return nil, errors.New("[NewService] subscriptions repo is required")
	}
	if accounts == nil {
		return nil, errors.New("[NewService] users repo is required")
	}
	s := &Service{subs: subs, accounts: accounts, nowTime: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Toggle subscribes subscriberID to channelID, or unsubscribes if already subscribed.
func (s *Service) Toggle(ctx context.Context, subscriberID, channelID string) (*ToggleResult, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return nil, apperrors.Validation("channelId is required")
	}
	if channelID == subscriberID {
		return nil, apperrors.Validation("you cannot subscribe to yourself")
	}
	if err := s.requireAccount(ctx, channelID, "channel does not exist"); err != nil {
		return nil, err
	}

	existing, err := s.subs.Find(ctx, subscriberID, channelID)
	switch {
	case err == nil:
		if err := s.subs.Delete(ctx, existing.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return nil, apperrors.Internal(apperrors.Wrapf(err, "Service.Toggle Delete"))
		}
		return &ToggleResult{Subscribed: false}, nil
	case !errors.Is(err, ErrNotFound):
		return nil, apperrors.Internal(apperrors.Wrapf(err, "Service.Toggle Find"))
	}

	created, err := s.subs.Create(ctx, &Subscription{
		SubscriberID: subscriberID,
		ChannelID:    channelID,
		CreatedAt:    s.nowTime().UTC(),
	})
	if errors.Is(err, ErrDuplicate) {
		// A concurrent toggle got there first; report the stored row.
		created, err = s.subs.Find(ctx, subscriberID, channelID)
	}
	if err != nil {
		return nil, apperrors.Internal(apperrors.Wrapf(err, "Service.Toggle Create"))
	}
	return &ToggleResult{Subscribed: true, Subscription: created}, nil
}

// Subscribers lists the accounts subscribed to channelID.
func (s *Service) Subscribers(ctx context.Context, channelID string) ([]*Entry, error) {
	if strings.TrimSpace(channelID) == "" {
		return nil, apperrors.Validation("channelId is required")
	}
	if err := s.requireAccount(ctx, channelID, "channel does not exist"); err != nil {
		return nil, err
	}
	list, err := s.subs.ListByChannel(ctx, channelID)
	if err != nil {
		return nil, apperrors.Internal(apperrors.Wrapf(err, "Service.Subscribers"))
	}
	return s.join(ctx, list, func(sub *Subscription) string { return sub.SubscriberID })
}

// SubscribedChannels lists the channels subscriberID follows.
func (s *Service) SubscribedChannels(ctx context.Context, subscriberID string) ([]*Entry, error) {
	if strings.TrimSpace(subscriberID) == "" {
		return nil, apperrors.Validation("subscriberId is required")
	}
	if err := s.requireAccount(ctx, subscriberID, "subscriber does not exist"); err != nil {
		return nil, err
	}
	list, err := s.subs.ListBySubscriber(ctx, subscriberID)
	if err != nil {
		return nil, apperrors.Internal(apperrors.Wrapf(err, "Service.SubscribedChannels"))
	}
	return s.join(ctx, list, func(sub *Subscription) string { return sub.ChannelID })
}

// Counts returns how many subscribers accountID has and how many channels it follows.
func (s *Service) Counts(ctx context.Context, accountID string) (subscribers int, subscribedTo int, err error) {
	subscribers, err = s.subs.CountByChannel(ctx, accountID)
	if err != nil {
		return 0, 0, apperrors.Internal(apperrors.Wrapf(err, "Service.Counts CountByChannel"))
	}
	subscribedTo, err = s.subs.CountBySubscriber(ctx, accountID)
	if err != nil {
		return 0, 0, apperrors.Internal(apperrors.Wrapf(err, "Service.Counts CountBySubscriber"))
	}
	return subscribers, subscribedTo, nil
}

// IsSubscribed reports whether subscriberID follows channelID.
func (s *Service) IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error) {
	if subscriberID == "" {
		return false, nil
	}
	_, err := s.subs.Find(ctx, subscriberID, channelID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, apperrors.Internal(apperrors.Wrapf(err, "Service.IsSubscribed"))
	}
}

func (s *Service) requireAccount(ctx context.Context, id, notFoundMessage string) error {
	_, err := s.accounts.FindByID(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, users.ErrNotFound):
		return apperrors.NotFound(notFoundMessage)
	default:
		return apperrors.Internal(apperrors.Wrapf(err, "Service.requireAccount"))
	}
}

// join resolves the other side of each subscription. Accounts that have
// disappeared since the subscription was made are skipped.
func (s *Service) join(ctx context.Context, list []*Subscription, other func(*Subscription) string) ([]*Entry, error) {
	entries := make([]*Entry, 0, len(list))
	for _, sub := range list {
		account, err := s.accounts.FindByID(ctx, other(sub))
		if errors.Is(err, users.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, apperrors.Internal(apperrors.Wrapf(err, "Service.join"))
		}
		entries = append(entries, &Entry{ID: sub.ID, SubscribedAt: sub.CreatedAt, Account: account.View()})
	}
	return entries, nil
}
