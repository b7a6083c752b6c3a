package auth

import (
	"context"
	"errors"

	apperrors "github.com/jrsteele09/go-video-server/internal/errors"
	"github.com/jrsteele09/go-video-server/token"
	"github.com/jrsteele09/go-video-server/users"
)

// Identity is the authenticated caller attached to a request.
type Identity struct {
	AccountID string
	Account   *users.AccountView
}

// Authenticator resolves access tokens to identities. It never writes.
type Authenticator struct {
	users  users.Repo
	tokens *token.Issuer
}

func NewAuthenticator(userRepo users.Repo, tokens *token.Issuer) (*Authenticator, error) {
	if userRepo == nil {
		return nil, errors.New("[NewAuthenticator] users repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewAuthenticator] token issuer is required")
	}
	return &Authenticator{users: userRepo, tokens: tokens}, nil
}

// Authenticate verifies an access token and checks the account still exists.
// Session state is not consulted, so a logged out account's access token is
// accepted until it expires.
func (a *Authenticator) Authenticate(ctx context.Context, rawAccessToken string) (*Identity, error) {
	if rawAccessToken == "" {
		return nil, UnauthorizedErr
	}

	claims, err := a.tokens.Verify(rawAccessToken, token.KindAccess)
	if errors.Is(err, token.ErrExpired) {
		return nil, AccessTokenExpiredErr
	}
	if err != nil {
		return nil, InvalidAccessTokenErr
	}

	account, err := a.users.FindByID(ctx, claims.AccountID)
	if errors.Is(err, users.ErrNotFound) {
		return nil, InvalidAccessTokenErr
	}
	if err != nil {
		return nil, apperrors.Internal(apperrors.Wrapf(err, "Authenticator.Authenticate FindByID"))
	}

	return &Identity{AccountID: account.ID, Account: account.View()}, nil
}
