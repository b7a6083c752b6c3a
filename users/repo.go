package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("account not found")
	ErrDuplicate = errors.New("username or email already in use")
	// ErrStaleRefreshToken means Patch.IfRefreshToken no longer matched the stored value.
	ErrStaleRefreshToken = errors.New("stored refresh token changed")
)

// Patch lists the fields to overwrite; nil fields are left alone.
type Patch struct {
	Username      *string
	FullName      *string
	PasswordHash  *string
	RefreshToken  *string
	AvatarURL     *string
	CoverImageURL *string

	// IfRefreshToken makes the patch conditional on the stored refresh token.
	IfRefreshToken *string
}

func (p Patch) IsEmpty() bool {
	return p.Username == nil && p.FullName == nil && p.PasswordHash == nil &&
		p.RefreshToken == nil && p.AvatarURL == nil && p.CoverImageURL == nil
}

// Apply copies the set fields onto a.
func (p Patch) Apply(a *Account) {
	if p.Username != nil {
		a.Username = *p.Username
	}
	if p.FullName != nil {
		a.FullName = *p.FullName
	}
	if p.PasswordHash != nil {
		a.PasswordHash = *p.PasswordHash
	}
	if p.RefreshToken != nil {
		a.RefreshToken = *p.RefreshToken
	}
	if p.AvatarURL != nil {
		a.AvatarURL = *p.AvatarURL
	}
	if p.CoverImageURL != nil {
		a.CoverImageURL = *p.CoverImageURL
	}
}

// Repo is the credential store. Every call is atomic on a single record.
type Repo interface {
	// FindByIdentifier matches username OR email; empty arguments are ignored.
	FindByIdentifier(ctx context.Context, username, email string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	// Insert assigns ID and timestamps when unset. Returns ErrDuplicate on a username or email clash.
	Insert(ctx context.Context, account *Account) (*Account, error)
	Patch(ctx context.Context, id string, patch Patch) (*Account, error)
}
