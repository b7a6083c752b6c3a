// Package accounts serves the profile side of an account: details, images
// and the public channel page.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/go-video-server/internal/errors"
	"github.com/jrsteele09/go-video-server/internal/utils"
	"github.com/jrsteele09/go-video-server/media"
	"github.com/jrsteele09/go-video-server/subscriptions"
	"github.com/jrsteele09/go-video-server/users"
)

var (
	UserNotFoundErr       = apperrors.NotFound("user does not exist")
	ChannelNotFoundErr    = apperrors.NotFound("channel does not exist")
	DetailsRequiredErr    = apperrors.Validation("username and full name are required")
	UsernameRequiredErr   = apperrors.Validation("username is required")
	ImageRequiredErr      = apperrors.Validation("image file is missing")
	UsernameTakenErr      = apperrors.Conflict("username already in use")
	MediaNotConfiguredErr = apperrors.Validation("image uploads are not enabled")
)

// ChannelProfile is the public view of an account as a channel.
type ChannelProfile struct {
	ID                        string `json:"id"`
	Username                  string `json:"username"`
	Email                     string `json:"email"`
	FullName                  string `json:"fullName"`
	AvatarURL                 string `json:"avatar,omitempty"`
	CoverImageURL             string `json:"coverImage,omitempty"`
	SubscribersCount          int    `json:"subscribersCount"`
	ChannelsSubscribedToCount int    `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
}

type Service struct {
	users         users.Repo
	subscriptions *subscriptions.Service
	media         media.Store
	nowTime       func() time.Time
}

type ServiceOption func(*Service)

func WithMediaStore(store media.Store) ServiceOption {
	return func(s *Service) {
		s.media = store
	}
}

func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(userRepo users.Repo, subs *subscriptions.Service, options ...ServiceOption) (*Service, error) {
	if userRepo == nil {
		return nil, errors.New("[NewService] users repo is required")
	}
	if subs == nil {
		return nil, errors.New("[NewService] subscriptions service is required")
	}
	s := &Service{users: userRepo, subscriptions: subs, nowTime: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Service) Current(ctx context.Context, accountID string) (*users.AccountView, error) {
	account, err := s.find(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account.View(), nil
}

// UpdateDetails sets full name and username. A changed username is checked
// for uniqueness again.
func (s *Service) UpdateDetails(ctx context.Context, accountID, fullName, username string) (*users.AccountView, error) {
	fullName = strings.TrimSpace(fullName)
	username = users.NormalizeUsername(username)
	if fullName == "" || username == "" {
		return nil, DetailsRequiredErr
	}

	account, err := s.find(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if username != account.Username {
		other, err := s.users.FindByIdentifier(ctx, username, "")
		switch {
		case err == nil && other.ID != account.ID:
			return nil, UsernameTakenErr
		case err != nil && !errors.Is(err, users.ErrNotFound):
			return nil, apperrors.Internal(apperrors.Wrapf(err, "Service.UpdateDetails FindByIdentifier"))
		}
	}

	updated, err := s.users.Patch(ctx, accountID, users.Patch{
		FullName: utils.Ptr(fullName),
		Username: utils.Ptr(username),
	})
	return s.patched(updated, err, "Service.UpdateDetails")
}

func (s *Service) UpdateAvatar(ctx context.Context, accountID string, upload *media.Upload) (*users.AccountView, error) {
	return s.replaceImage(ctx, accountID, upload, media.AvatarPrefix,
		func(a *users.Account) string { return a.AvatarURL },
		func(url string) users.Patch { return users.Patch{AvatarURL: utils.Ptr(url)} },
	)
}

func (s *Service) UpdateCoverImage(ctx context.Context, accountID string, upload *media.Upload) (*users.AccountView, error) {
	return s.replaceImage(ctx, accountID, upload, media.CoverImagePrefix,
		func(a *users.Account) string { return a.CoverImageURL },
		func(url string) users.Patch { return users.Patch{CoverImageURL: utils.Ptr(url)} },
	)
}

// ChannelProfile returns username's channel page as seen by viewerID.
func (s *Service) ChannelProfile(ctx context.Context, username, viewerID string) (*ChannelProfile, error) {
	username = users.NormalizeUsername(username)
	if username == "" {
		return nil, UsernameRequiredErr
	}

	channel, err := s.users.FindByIdentifier(ctx, username, "")
	if errors.Is(err, users.ErrNotFound) {
		return nil, ChannelNotFoundErr
	}
	if err != nil {
		return nil, apperrors.Internal(apperrors.Wrapf(err, "Service.ChannelProfile FindByIdentifier"))
	}

	subscribers, subscribedTo, err := s.subscriptions.Counts(ctx, channel.ID)
	if err != nil {
		return nil, err
	}
	isSubscribed, err := s.subscriptions.IsSubscribed(ctx, viewerID, channel.ID)
	if err != nil {
		return nil, err
	}

	return &ChannelProfile{
		ID:                        channel.ID,
		Username:                  channel.Username,
		Email:                     channel.Email,
		FullName:                  channel.FullName,
		AvatarURL:                 channel.AvatarURL,
		CoverImageURL:             channel.CoverImageURL,
		SubscribersCount:          subscribers,
		ChannelsSubscribedToCount: subscribedTo,
		IsSubscribed:              isSubscribed,
	}, nil
}

// replaceImage uploads the new image, points the account at it, then deletes
// the old object. Failing to delete the old object only logs.
func (s *Service) replaceImage(
	ctx context.Context,
	accountID string,
	upload *media.Upload,
	prefix string,
	current func(*users.Account) string,
	patch func(url string) users.Patch,
) (*users.AccountView, error) {
	if s.media == nil {
		return nil, MediaNotConfiguredErr
	}
	if upload == nil || upload.Body == nil {
		return nil, ImageRequiredErr
	}

	account, err := s.find(ctx, accountID)
	if err != nil {
		return nil, err
	}
	previous := current(account)

	url, err := s.media.Put(ctx, media.NewKey(prefix, upload.FileName, s.nowTime()), *upload)
	if errors.Is(err, media.ErrEmptyUpload) {
		return nil, ImageRequiredErr
	}
	if err != nil {
		return nil, apperrors.Internal(apperrors.Wrapf(err, "Service.replaceImage Put"))
	}

	updated, err := s.users.Patch(ctx, accountID, patch(url))
	if err != nil {
		if delErr := s.media.Delete(ctx, url); delErr != nil {
			log.Warn().Err(delErr).Str("account", accountID).Str("url", url).Msg("failed to delete unused image")
		}
		return s.patched(nil, err, "Service.replaceImage")
	}

	if previous != "" {
		if err := s.media.Delete(ctx, previous); err != nil {
			log.Warn().Err(err).Str("account", accountID).Str("url", previous).Msg("failed to delete replaced image")
		}
	}
	return updated.View(), nil
}

func (s *Service) find(ctx context.Context, accountID string) (*users.Account, error) {
	account, err := s.users.FindByID(ctx, accountID)
	if errors.Is(err, users.ErrNotFound) {
		return nil, UserNotFoundErr
	}
	if err != nil {
		return nil, apperrors.Internal(apperrors.Wrapf(err, "Service.find"))
	}
	return account, nil
}

func (s *Service) patched(account *users.Account, err error, op string) (*users.AccountView, error) {
	switch {
	case err == nil:
		return account.View(), nil
	case errors.Is(err, users.ErrNotFound):
		return nil, UserNotFoundErr
	case errors.Is(err, users.ErrDuplicate):
		return nil, UsernameTakenErr
	default:
		return nil, apperrors.Internal(apperrors.Wrapf(err, "%s Patch", op))
	}
}
