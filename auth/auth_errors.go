package auth

import apperrors "github.com/jrsteele09/go-video-server/internal/errors"

var (
	UsernameRequiredErr    = apperrors.Validation("username is required")
	EmailRequiredErr       = apperrors.Validation("email is required")
	FullNameRequiredErr    = apperrors.Validation("full name is required")
	PasswordRequiredErr    = apperrors.Validation("password is required")
	PasswordTooLongErr     = apperrors.Validation("password must be at most 72 bytes")
	IdentifierRequiredErr  = apperrors.Validation("username or email is required")
	ImagesUnsupportedErr   = apperrors.Validation("image uploads are not enabled")
	AccountExistsErr       = apperrors.Conflict("username or email already in use")
	UserNotFoundErr        = apperrors.NotFound("user does not exist")
	InvalidCredentialsErr  = apperrors.Authentication("invalid user credentials")
	InvalidOldPasswordErr  = apperrors.Authentication("invalid old password")
	UnauthorizedErr        = apperrors.Authentication("unauthorized request")
	InvalidAccessTokenErr  = apperrors.Authentication("invalid access token")
	AccessTokenExpiredErr  = apperrors.Authentication("access token expired")
	InvalidRefreshTokenErr = apperrors.Authentication("invalid refresh token")
	RefreshTokenUsedErr    = apperrors.Authentication("refresh token is expired or used")
)
