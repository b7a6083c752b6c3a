package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/go-video-server/internal/errors"
	"github.com/jrsteele09/go-video-server/internal/utils"
	"github.com/jrsteele09/go-video-server/media"
	"github.com/jrsteele09/go-video-server/token"
	"github.com/jrsteele09/go-video-server/users"
)

// RegisterRequest carries the fields of a new account. Avatar and CoverImage are optional.
type RegisterRequest struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	Avatar     *media.Upload
	CoverImage *media.Upload
}

// LoginRequest identifies the account by username or email.
type LoginRequest struct {
	Username string
	Email    string
	Password string
}

type LoginResult struct {
	Account *users.AccountView
	Tokens  token.Pair
}

// SessionService owns the session lifecycle of an account. It is the only
// writer of the stored refresh token.
//
// An account is either Anonymous (no stored refresh token) or Authenticated.
// Login and Refresh overwrite the single stored token, Logout clears it.
type SessionService struct {
	users   users.Repo       // Credential store
	tokens  *token.Issuer    // Mints and verifies access/refresh tokens
	media   media.Store      // Optional store for registration images
	nowTime func() time.Time // nowTime function (injectable for testing)
}

// SessionServiceOption defines a function type to modify the SessionService instance.
type SessionServiceOption func(*SessionService)

// WithMediaStore enables avatar and cover image uploads at registration.
func WithMediaStore(store media.Store) SessionServiceOption {
	return func(s *SessionService) {
		s.media = store
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) SessionServiceOption {
	return func(s *SessionService) {
		s.nowTime = nowFunc
	}
}

func NewSessionService(userRepo users.Repo, tokens *token.Issuer, options ...SessionServiceOption) (*SessionService, error) {
	if userRepo == nil {
		return nil, errors.New("[NewSessionService] users repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewSessionService] token issuer is required")
	}

	s := &SessionService{
		users:   userRepo,
		tokens:  tokens,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Register creates an account. Username and email are normalized before the
// uniqueness check so both are case-insensitive.
func (s *SessionService) Register(ctx context.Context, req RegisterRequest) (*users.AccountView, error) {
	username := users.NormalizeUsername(req.Username)
	email := users.NormalizeEmail(req.Email)
	fullName := strings.TrimSpace(req.FullName)

	switch {
	case username == "":
		return nil, UsernameRequiredErr
	case email == "":
		return nil, EmailRequiredErr
	case fullName == "":
		return nil, FullNameRequiredErr
	case req.Password == "":
		return nil, PasswordRequiredErr
	}
	if (req.Avatar != nil || req.CoverImage != nil) && s.media == nil {
		return nil, ImagesUnsupportedErr
	}

	_, err := s.users.FindByIdentifier(ctx, username, email)
	if err == nil {
		return nil, AccountExistsErr
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, apperrors.Internal(apperrors.Wrapf(err, "SessionService.Register FindByIdentifier"))
	}

	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	account := &users.Account{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
	}

	var uploaded []string
	if account.AvatarURL, err = s.upload(ctx, media.AvatarPrefix, req.Avatar); err != nil {
		return nil, err
	}
	uploaded = append(uploaded, account.AvatarURL)
	if account.CoverImageURL, err = s.upload(ctx, media.CoverImagePrefix, req.CoverImage); err != nil {
		s.discard(ctx, uploaded)
		return nil, err
	}
	uploaded = append(uploaded, account.CoverImageURL)

	created, err := s.users.Insert(ctx, account)
	if err != nil {
		s.discard(ctx, uploaded)
		if errors.Is(err, users.ErrDuplicate) {
			return nil, AccountExistsErr
		}
		return nil, apperrors.Internal(apperrors.Wrapf(err, "SessionService.Register Insert"))
	}
	return created.View(), nil
}

// Login verifies the password and starts a session. Any previously issued
// refresh token for the account stops working.
func (s *SessionService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	username := users.NormalizeUsername(req.Username)
	email := users.NormalizeEmail(req.Email)
	if username == "" && email == "" {
		return nil, IdentifierRequiredErr
	}

	account, err := s.users.FindByIdentifier(ctx, username, email)
	if errors.Is(err, users.ErrNotFound) {
		return nil, UserNotFoundErr
	}
	if err != nil {
		return nil, apperrors.Internal(apperrors.Wrapf(err, "SessionService.Login FindByIdentifier"))
	}

	if !users.CheckPasswordHash(req.Password, account.PasswordHash) {
		return nil, InvalidCredentialsErr
	}

	pair, err := s.tokens.IssuePair(account.ID)
	if err != nil {
		return nil, apperrors.Internal(apperrors.Wrapf(err, "SessionService.Login IssuePair"))
	}

	updated, err := s.users.Patch(ctx, account.ID, users.Patch{RefreshToken: utils.Ptr(pair.RefreshToken)})
	if errors.Is(err, users.ErrNotFound) {
		return nil, UserNotFoundErr
	}
	if err != nil {
		return nil, apperrors.Internal(apperrors.Wrapf(err, "SessionService.Login Patch"))
	}

	return &LoginResult{Account: updated.View(), Tokens: *pair}, nil
}

// Refresh exchanges the stored refresh token for a new pair. The presented
// token is unusable afterwards even though it has not expired.
//
// Verification failures are not distinguished to the caller.
func (s *SessionService) Refresh(ctx context.Context, presented string) (*token.Pair, error) {
	if presented == "" {
		return nil, UnauthorizedErr
	}

	claims, err := s.tokens.Verify(presented, token.KindRefresh)
	if err != nil {
		return nil, InvalidRefreshTokenErr
	}

	account, err := s.users.FindByID(ctx, claims.AccountID)
	if errors.Is(err, users.ErrNotFound) {
		return nil, InvalidRefreshTokenErr
	}
	if err != nil {
		return nil, apperrors.Internal(apperrors.Wrapf(err, "SessionService.Refresh FindByID"))
	}

	if subtle.ConstantTimeCompare([]byte(presented), []byte(account.RefreshToken)) != 1 {
		return nil, RefreshTokenUsedErr
	}

	pair, err := s.tokens.IssuePair(account.ID)
	if err != nil {
		return nil, apperrors.Internal(apperrors.Wrapf(err, "SessionService.Refresh IssuePair"))
	}

	// Conditional on the token we just compared, so of two racing refreshes only one wins.
	_, err = s.users.Patch(ctx, account.ID, users.Patch{
		RefreshToken:   utils.Ptr(pair.RefreshToken),
		IfRefreshToken: utils.Ptr(presented),
	})
	switch {
	case errors.Is(err, users.ErrStaleRefreshToken):
		return nil, RefreshTokenUsedErr
	case errors.Is(err, users.ErrNotFound):
		return nil, InvalidRefreshTokenErr
	case err != nil:
		return nil, apperrors.Internal(apperrors.Wrapf(err, "SessionService.Refresh Patch"))
	}
	return pair, nil
}

// Logout clears the stored refresh token. Calling it again is a no-op.
// Access tokens already issued stay valid until they expire.
func (s *SessionService) Logout(ctx context.Context, accountID string) error {
	_, err := s.users.Patch(ctx, accountID, users.Patch{RefreshToken: utils.Ptr("")})
	if errors.Is(err, users.ErrNotFound) {
		return UserNotFoundErr
	}
	if err != nil {
		return apperrors.Internal(apperrors.Wrapf(err, "SessionService.Logout Patch"))
	}
	return nil
}

// ChangePassword replaces the password hash. The stored refresh token is
// left as is, so existing sessions keep working.
func (s *SessionService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	if newPassword == "" {
		return PasswordRequiredErr
	}

	account, err := s.users.FindByID(ctx, accountID)
	if errors.Is(err, users.ErrNotFound) {
		return UserNotFoundErr
	}
	if err != nil {
		return apperrors.Internal(apperrors.Wrapf(err, "SessionService.ChangePassword FindByID"))
	}

	if !users.CheckPasswordHash(oldPassword, account.PasswordHash) {
		return InvalidOldPasswordErr
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}

	_, err = s.users.Patch(ctx, accountID, users.Patch{PasswordHash: utils.Ptr(hash)})
	if errors.Is(err, users.ErrNotFound) {
		return UserNotFoundErr
	}
	if err != nil {
		return apperrors.Internal(apperrors.Wrapf(err, "SessionService.ChangePassword Patch"))
	}
	return nil
}

func (s *SessionService) hashPassword(password string) (string, error) {
	hash, err := users.HashPassword(password)
	if errors.Is(err, users.ErrPasswordTooLong) {
		return "", PasswordTooLongErr
	}
	if err != nil {
		return "", apperrors.Internal(apperrors.Wrapf(err, "SessionService.hashPassword"))
	}
	return hash, nil
}

// upload stores an optional image and returns its URL, or "" when there is none.
func (s *SessionService) upload(ctx context.Context, prefix string, upload *media.Upload) (string, error) {
	if upload == nil {
		return "", nil
	}
	url, err := s.media.Put(ctx, media.NewKey(prefix, upload.FileName, s.nowTime()), *upload)
	if errors.Is(err, media.ErrEmptyUpload) {
		return "", apperrors.Validation("uploaded image is empty")
	}
	if err != nil {
		return "", apperrors.Internal(apperrors.Wrapf(err, "SessionService.upload %s", prefix))
	}
	return url, nil
}

// discard removes uploads of a registration that did not complete.
func (s *SessionService) discard(ctx context.Context, urls []string) {
	for _, url := range urls {
		if url != "" {
			if err := s.media.Delete(ctx, url); err != nil {
				log.Warn().Err(err).Str("url", url).Msg("failed to delete upload of abandoned registration")
			}
		}
	}
}
