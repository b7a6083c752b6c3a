package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-video-server/auth"
	apperrors "github.com/jrsteele09/go-video-server/internal/errors"
	"github.com/jrsteele09/go-video-server/media"
	"github.com/jrsteele09/go-video-server/media/mediafake"
	"github.com/jrsteele09/go-video-server/token"
	"github.com/jrsteele09/go-video-server/users"
	fakeuserrepo "github.com/jrsteele09/go-video-server/users/repofake"
)

const (
	accessSecret     = "access-1234"
	refreshSecret    = "refresh-5678"
	testUsername     = "bob"
	testUserEmail    = "b@x.com"
	testUserFullName = "Bob B"
	testUserPassword = "Secret123"
)

// testFixture holds all test dependencies
type testFixture struct {
	userRepo      *fakeuserrepo.FakeUserRepo
	mediaStore    *mediafake.FakeMediaStore
	issuer        *token.Issuer
	service       *auth.SessionService
	authenticator *auth.Authenticator
	now           time.Time
}

// setupTestFixture creates a new test fixture with all dependencies
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		userRepo:   fakeuserrepo.NewFakeUserRepo(),
		mediaStore: mediafake.NewFakeMediaStore(),
		now:        time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	nowFunc := func() time.Time { return f.now }

	issuer, err := token.NewIssuer(token.IssuerConfig{
		AccessSecret:  accessSecret,
		AccessExpiry:  15 * time.Minute,
		RefreshSecret: refreshSecret,
		RefreshExpiry: 10 * 24 * time.Hour,
	}, token.WithNowFunc(nowFunc))
	require.NoError(t, err)
	f.issuer = issuer

	f.service, err = auth.NewSessionService(f.userRepo, issuer,
		auth.WithMediaStore(f.mediaStore),
		auth.WithNowTime(nowFunc),
	)
	require.NoError(t, err)

	f.authenticator, err = auth.NewAuthenticator(f.userRepo, issuer)
	require.NoError(t, err)
	return f
}

func (f *testFixture) registerBob(t *testing.T) *users.AccountView {
	t.Helper()
	account, err := f.service.Register(context.Background(), auth.RegisterRequest{
		Username: testUsername,
		Email:    testUserEmail,
		FullName: testUserFullName,
		Password: testUserPassword,
	})
	require.NoError(t, err)
	return account
}

func (f *testFixture) loginBob(t *testing.T) *auth.LoginResult {
	t.Helper()
	result, err := f.service.Login(context.Background(), auth.LoginRequest{
		Username: testUsername,
		Password: testUserPassword,
	})
	require.NoError(t, err)
	return result
}

func (f *testFixture) storedRefreshToken(t *testing.T, id string) string {
	t.Helper()
	account, err := f.userRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return account.RefreshToken
}

func TestNewSessionServiceRequiresDependencies(t *testing.T) {
	_, err := auth.NewSessionService(nil, &token.Issuer{})
	require.Error(t, err)
	_, err = auth.NewSessionService(fakeuserrepo.NewFakeUserRepo(), nil)
	require.Error(t, err)
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t)

	account, err := f.service.Register(context.Background(), auth.RegisterRequest{
		Username: "  Bob ",
		Email:    "B@X.com",
		FullName: testUserFullName,
		Password: testUserPassword,
	})
	require.NoError(t, err)
	require.NotEmpty(t, account.ID)
	require.Equal(t, testUsername, account.Username)
	require.Equal(t, testUserEmail, account.Email)

	stored, err := f.userRepo.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	require.NotEqual(t, testUserPassword, stored.PasswordHash)
	require.True(t, users.CheckPasswordHash(testUserPassword, stored.PasswordHash))
	require.Empty(t, stored.RefreshToken)

	body, err := json.Marshal(account)
	require.NoError(t, err)
	require.NotContains(t, strings.ToLower(string(body)), "password")
	require.NotContains(t, strings.ToLower(string(body)), "refresh")
}

func TestRegisterValidation(t *testing.T) {
	f := setupTestFixture(t)
	valid := auth.RegisterRequest{Username: "u", Email: "e@x.com", FullName: "F", Password: "p"}

	tests := []struct {
		name   string
		mutate func(r *auth.RegisterRequest)
		want   error
	}{
		{"empty username", func(r *auth.RegisterRequest) { r.Username = "   " }, auth.UsernameRequiredErr},
		{"empty email", func(r *auth.RegisterRequest) { r.Email = "" }, auth.EmailRequiredErr},
		{"empty full name", func(r *auth.RegisterRequest) { r.FullName = "" }, auth.FullNameRequiredErr},
		{"empty password", func(r *auth.RegisterRequest) { r.Password = "" }, auth.PasswordRequiredErr},
		{"long password", func(r *auth.RegisterRequest) { r.Password = strings.Repeat("x", 73) }, auth.PasswordTooLongErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := f.service.Register(context.Background(), req)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestRegisterConflict(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, auth.RegisterRequest{Username: "alice", Email: "a@x.com", FullName: "Alice", Password: "pw"})
	require.NoError(t, err)

	_, err = f.service.Register(ctx, auth.RegisterRequest{Username: "alice", Email: "a@x.com", FullName: "Alice", Password: "pw"})
	require.ErrorIs(t, err, apperrors.ErrConflict)

	// Either field alone clashes, regardless of case.
	_, err = f.service.Register(ctx, auth.RegisterRequest{Username: "ALICE", Email: "other@x.com", FullName: "Alice", Password: "pw"})
	require.ErrorIs(t, err, auth.AccountExistsErr)
	_, err = f.service.Register(ctx, auth.RegisterRequest{Username: "other", Email: "A@x.com", FullName: "Alice", Password: "pw"})
	require.ErrorIs(t, err, auth.AccountExistsErr)
}

func TestRegisterWithImages(t *testing.T) {
	f := setupTestFixture(t)

	account, err := f.service.Register(context.Background(), auth.RegisterRequest{
		Username:   testUsername,
		Email:      testUserEmail,
		FullName:   testUserFullName,
		Password:   testUserPassword,
		Avatar:     &media.Upload{FileName: "me.png", Body: strings.NewReader("avatar")},
		CoverImage: &media.Upload{FileName: "cover.jpg", Body: strings.NewReader("cover")},
	})
	require.NoError(t, err)
	require.Contains(t, account.AvatarURL, "avatars/2025/03/01/")
	require.Contains(t, account.CoverImageURL, "covers/2025/03/01/")

	data, ok := f.mediaStore.Get(account.AvatarURL)
	require.True(t, ok)
	require.Equal(t, []byte("avatar"), data)
}

func TestRegisterImageFailureLeavesNoAccount(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, auth.RegisterRequest{
		Username:   testUsername,
		Email:      testUserEmail,
		FullName:   testUserFullName,
		Password:   testUserPassword,
		Avatar:     &media.Upload{FileName: "me.png", Body: strings.NewReader("avatar")},
		CoverImage: &media.Upload{FileName: "cover.jpg", Body: strings.NewReader("")},
	})
	require.ErrorIs(t, err, apperrors.ErrValidation)
	require.Zero(t, f.mediaStore.Len())

	_, err = f.userRepo.FindByIdentifier(ctx, testUsername, "")
	require.ErrorIs(t, err, users.ErrNotFound)

	f.mediaStore.PutErr = errors.New("bucket gone")
	_, err = f.service.Register(ctx, auth.RegisterRequest{
		Username: testUsername, Email: testUserEmail, FullName: testUserFullName, Password: testUserPassword,
		Avatar: &media.Upload{FileName: "me.png", Body: strings.NewReader("avatar")},
	})
	require.ErrorIs(t, err, apperrors.ErrInternal)
	require.Equal(t, "internal error", apperrors.Message(err))
}

func TestRegisterLogsFailedCleanup(t *testing.T) {
	f := setupTestFixture(t)
	var logs bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&logs)
	t.Cleanup(func() { log.Logger = previous })

	f.mediaStore.DeleteErr = errors.New("bucket gone")
	_, err := f.service.Register(context.Background(), auth.RegisterRequest{
		Username:   testUsername,
		Email:      testUserEmail,
		FullName:   testUserFullName,
		Password:   testUserPassword,
		Avatar:     &media.Upload{FileName: "me.png", Body: strings.NewReader("avatar")},
		CoverImage: &media.Upload{FileName: "cover.jpg", Body: strings.NewReader("")},
	})
	require.ErrorIs(t, err, apperrors.ErrValidation)
	require.Equal(t, 1, f.mediaStore.Len())
	require.Contains(t, logs.String(), "failed to delete upload of abandoned registration")
	require.Contains(t, logs.String(), "bucket gone")
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)
	bob := f.registerBob(t)

	result := f.loginBob(t)
	require.Equal(t, bob.ID, result.Account.ID)
	require.NotEmpty(t, result.Tokens.AccessToken)
	require.NotEmpty(t, result.Tokens.RefreshToken)
	require.Equal(t, result.Tokens.RefreshToken, f.storedRefreshToken(t, bob.ID))

	byEmail, err := f.service.Login(context.Background(), auth.LoginRequest{Email: "B@x.com", Password: testUserPassword})
	require.NoError(t, err)
	require.Equal(t, bob.ID, byEmail.Account.ID)
}

func TestLoginFailures(t *testing.T) {
	f := setupTestFixture(t)
	f.registerBob(t)
	ctx := context.Background()

	_, err := f.service.Login(ctx, auth.LoginRequest{Password: testUserPassword})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.service.Login(ctx, auth.LoginRequest{Username: "nobody", Password: testUserPassword})
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.service.Login(ctx, auth.LoginRequest{Username: testUsername, Password: "wrong"})
	require.ErrorIs(t, err, apperrors.ErrAuthentication)
}

func TestLoginSupersedesPreviousSession(t *testing.T) {
	f := setupTestFixture(t)
	f.registerBob(t)
	ctx := context.Background()

	first := f.loginBob(t)
	second := f.loginBob(t)
	require.NotEqual(t, first.Tokens.RefreshToken, second.Tokens.RefreshToken)

	_, err := f.service.Refresh(ctx, first.Tokens.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrAuthentication)

	_, err = f.service.Refresh(ctx, second.Tokens.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRotatesExactlyOnce(t *testing.T) {
	f := setupTestFixture(t)
	bob := f.registerBob(t)
	ctx := context.Background()
	login := f.loginBob(t)

	pair, err := f.service.Refresh(ctx, login.Tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, login.Tokens.RefreshToken, pair.RefreshToken)
	require.Equal(t, pair.RefreshToken, f.storedRefreshToken(t, bob.ID))

	_, err = f.service.Refresh(ctx, login.Tokens.RefreshToken)
	require.ErrorIs(t, err, auth.RefreshTokenUsedErr)

	identity, err := f.authenticator.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, bob.ID, identity.AccountID)
}

func TestRefreshRejections(t *testing.T) {
	f := setupTestFixture(t)
	bob := f.registerBob(t)
	ctx := context.Background()
	login := f.loginBob(t)

	_, err := f.service.Refresh(ctx, "")
	require.ErrorIs(t, err, auth.UnauthorizedErr)

	_, err = f.service.Refresh(ctx, "not-a-token")
	require.ErrorIs(t, err, auth.InvalidRefreshTokenErr)

	// An access token is signed with the other secret.
	_, err = f.service.Refresh(ctx, login.Tokens.AccessToken)
	require.ErrorIs(t, err, auth.InvalidRefreshTokenErr)

	stranger, err := f.issuer.IssueRefresh("no-such-account")
	require.NoError(t, err)
	_, err = f.service.Refresh(ctx, stranger)
	require.ErrorIs(t, err, auth.InvalidRefreshTokenErr)

	// A validly signed token that was never stored.
	unstored, err := f.issuer.IssueRefresh(bob.ID)
	require.NoError(t, err)
	_, err = f.service.Refresh(ctx, unstored)
	require.ErrorIs(t, err, auth.RefreshTokenUsedErr)

	f.now = f.now.Add(11 * 24 * time.Hour)
	_, err = f.service.Refresh(ctx, login.Tokens.RefreshToken)
	require.ErrorIs(t, err, auth.InvalidRefreshTokenErr)
}

func TestConcurrentRefreshHasOneWinner(t *testing.T) {
	f := setupTestFixture(t)
	bob := f.registerBob(t)
	login := f.loginBob(t)

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		losers  []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pair, err := f.service.Refresh(context.Background(), login.Tokens.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				losers = append(losers, err)
				return
			}
			winners = append(winners, pair.RefreshToken)
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	require.Len(t, losers, callers-1)
	for _, err := range losers {
		require.ErrorIs(t, err, apperrors.ErrAuthentication)
	}
	require.Equal(t, winners[0], f.storedRefreshToken(t, bob.ID))
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	bob := f.registerBob(t)
	ctx := context.Background()
	login := f.loginBob(t)

	require.NoError(t, f.service.Logout(ctx, bob.ID))
	require.Empty(t, f.storedRefreshToken(t, bob.ID))
	require.NoError(t, f.service.Logout(ctx, bob.ID))

	_, err := f.service.Refresh(ctx, login.Tokens.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrAuthentication)

	// The access token is stateless and outlives the session until it expires.
	_, err = f.authenticator.Authenticate(ctx, login.Tokens.AccessToken)
	require.NoError(t, err)

	require.ErrorIs(t, f.service.Logout(ctx, "missing"), apperrors.ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	f := setupTestFixture(t)
	bob := f.registerBob(t)
	ctx := context.Background()
	login := f.loginBob(t)

	err := f.service.ChangePassword(ctx, bob.ID, "wrong", "NewSecret1")
	require.ErrorIs(t, err, auth.InvalidOldPasswordErr)

	err = f.service.ChangePassword(ctx, bob.ID, testUserPassword, "")
	require.ErrorIs(t, err, apperrors.ErrValidation)

	require.NoError(t, f.service.ChangePassword(ctx, bob.ID, testUserPassword, "NewSecret1"))

	_, err = f.service.Login(ctx, auth.LoginRequest{Username: testUsername, Password: testUserPassword})
	require.ErrorIs(t, err, apperrors.ErrAuthentication)

	// Existing sessions survive a password change.
	require.Equal(t, login.Tokens.RefreshToken, f.storedRefreshToken(t, bob.ID))
	_, err = f.service.Refresh(ctx, login.Tokens.RefreshToken)
	require.NoError(t, err)

	_, err = f.service.Login(ctx, auth.LoginRequest{Username: testUsername, Password: "NewSecret1"})
	require.NoError(t, err)

	require.ErrorIs(t, f.service.ChangePassword(ctx, "missing", "a", "b"), apperrors.ErrNotFound)
}

func TestEndToEndSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, auth.RegisterRequest{
		Username: "bob", Email: "b@x.com", FullName: "Bob B", Password: "Secret123",
	})
	require.NoError(t, err)

	login, err := f.service.Login(ctx, auth.LoginRequest{Username: "bob", Password: "Secret123"})
	require.NoError(t, err)
	require.NotEmpty(t, login.Tokens.AccessToken)
	require.NotEmpty(t, login.Tokens.RefreshToken)
	body, err := json.Marshal(login.Account)
	require.NoError(t, err)
	require.NotContains(t, strings.ToLower(string(body)), "password")

	rotated, err := f.service.Refresh(ctx, login.Tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, login.Tokens.RefreshToken, rotated.RefreshToken)

	require.NoError(t, f.service.Logout(ctx, login.Account.ID))

	_, err = f.service.Refresh(ctx, rotated.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrAuthentication)
}
