package config

import "time"

const (
	accessSecretVar  = "ACCESS_TOKEN_SECRET"
	refreshSecretVar = "REFRESH_TOKEN_SECRET"
)

type TokenConfig interface {
	GetAccessTokenSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenSecret() string
	GetRefreshTokenExpiry() time.Duration
}

type Tokens struct {
	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET,notEmpty"`
	AccessTokenExpiry  time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET,notEmpty"`
	RefreshTokenExpiry time.Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"240h"`
}

var _ TokenConfig = Tokens{}

func (t Tokens) GetAccessTokenSecret() string {
	return t.AccessTokenSecret
}

func (t Tokens) GetAccessTokenExpiry() time.Duration {
	return t.AccessTokenExpiry
}

func (t Tokens) GetRefreshTokenSecret() string {
	return t.RefreshTokenSecret
}

func (t Tokens) GetRefreshTokenExpiry() time.Duration {
	return t.RefreshTokenExpiry
}
