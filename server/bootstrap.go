package server

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-video-server/accounts"
	"github.com/jrsteele09/go-video-server/auth"
	"github.com/jrsteele09/go-video-server/internal/config"
	"github.com/jrsteele09/go-video-server/internal/storage/sqlstore"
	"github.com/jrsteele09/go-video-server/media"
	"github.com/jrsteele09/go-video-server/media/mediafake"
	"github.com/jrsteele09/go-video-server/media/s3store"
	"github.com/jrsteele09/go-video-server/subscriptions"
	fakesubscriptionrepo "github.com/jrsteele09/go-video-server/subscriptions/repofake"
	"github.com/jrsteele09/go-video-server/token"
	"github.com/jrsteele09/go-video-server/users"
	fakeuserrepo "github.com/jrsteele09/go-video-server/users/repofake"
)

// repos groups the storage implementations selected by STORE_DRIVER.
type repos struct {
	users         users.Repo
	subscriptions subscriptions.Repo
	close         func() error
}

// Bootstrap builds the server and everything behind it from config. The
// returned close func releases the storage backend.
func Bootstrap(ctx context.Context, cfg config.Config) (*Server, func() error, error) {
	storage, err := openRepos(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("[Bootstrap] storage: %w", err)
	}

	services, err := buildServices(ctx, cfg, storage)
	if err != nil {
		_ = storage.close()
		return nil, nil, fmt.Errorf("[Bootstrap] services: %w", err)
	}

	s, err := New(cfg, services)
	if err != nil {
		_ = storage.close()
		return nil, nil, err
	}
	return s, storage.close, nil
}

func openRepos(ctx context.Context, cfg config.Config) (repos, error) {
	switch cfg.GetStoreDriver() {
	case config.StoreMemory:
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return repos{
			users:         fakeuserrepo.NewFakeUserRepo(),
			subscriptions: fakesubscriptionrepo.NewFakeSubscriptionRepo(),
			close:         func() error { return nil },
		}, nil
	default:
		dialect, err := sqlstore.ParseDialect(cfg.GetStoreDriver())
		if err != nil {
			return repos{}, err
		}
		store, err := sqlstore.Open(ctx, dialect, cfg.GetDatabaseDSN())
		if err != nil {
			return repos{}, err
		}
		log.Info().Str("driver", string(dialect)).Msg("sql storage ready")
		return repos{users: store.Users(), subscriptions: store.Subscriptions(), close: store.Close}, nil
	}
}

func openMediaStore(ctx context.Context, cfg config.Config) (media.Store, error) {
	switch cfg.GetMediaDriver() {
	case config.MediaS3:
		s3cfg := cfg.GetS3()
		return s3store.New(ctx, s3store.Options{
			Bucket:        s3cfg.Bucket,
			Region:        s3cfg.Region,
			Endpoint:      s3cfg.Endpoint,
			AccessKey:     s3cfg.AccessKey,
			SecretKey:     s3cfg.SecretKey,
			PublicBaseURL: s3cfg.PublicBaseURL,
		})
	default:
		return mediafake.NewFakeMediaStore(), nil
	}
}

func buildServices(ctx context.Context, cfg config.Config, storage repos) (Services, error) {
	issuer, err := token.NewIssuer(token.IssuerConfig{
		AccessSecret:  cfg.GetAccessTokenSecret(),
		AccessExpiry:  cfg.GetAccessTokenExpiry(),
		RefreshSecret: cfg.GetRefreshTokenSecret(),
		RefreshExpiry: cfg.GetRefreshTokenExpiry(),
	})
	if err != nil {
		return Services{}, err
	}

	mediaStore, err := openMediaStore(ctx, cfg)
	if err != nil {
		return Services{}, err
	}

	sessions, err := auth.NewSessionService(storage.users, issuer, auth.WithMediaStore(mediaStore))
	if err != nil {
		return Services{}, err
	}
	authenticator, err := auth.NewAuthenticator(storage.users, issuer)
	if err != nil {
		return Services{}, err
	}
	subs, err := subscriptions.NewService(storage.subscriptions, storage.users)
	if err != nil {
		return Services{}, err
	}
	accountService, err := accounts.NewService(storage.users, subs, accounts.WithMediaStore(mediaStore))
	if err != nil {
		return Services{}, err
	}

	return Services{
		Sessions:      sessions,
		Authenticator: authenticator,
		Accounts:      accountService,
		Subscriptions: subs,
	}, nil
}
