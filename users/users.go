package users

import (
	"strings"
	"time"
)

// Account is the persisted account record. PasswordHash and RefreshToken
// never leave the process; use View for anything serialized.
type Account struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	PasswordHash  string    `json:"-"`
	RefreshToken  string    `json:"-"` // the single live session slot, "" when logged out
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// AccountView is the sanitized shape returned to clients.
type AccountView struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatar,omitempty"`
	CoverImageURL string    `json:"coverImage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (a *Account) View() *AccountView {
	if a == nil {
		return nil
	}
	return &AccountView{
		ID:            a.ID,
		Username:      a.Username,
		Email:         a.Email,
		FullName:      a.FullName,
		AvatarURL:     a.AvatarURL,
		CoverImageURL: a.CoverImageURL,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// Clone returns a copy so callers can't mutate stored records.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// NormalizeUsername gives usernames a canonical case so identity is case-insensitive.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
