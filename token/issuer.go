package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Verify failures. Exactly one of these is returned for a rejected token.
var (
	ErrMalformed        = errors.New("token malformed")
	ErrInvalidSignature = errors.New("token signature invalid")
	ErrExpired          = errors.New("token expired")
)

// Kind selects which secret a token is signed and verified with.
type Kind int

const (
	KindAccess Kind = iota
	KindRefresh
)

func (k Kind) String() string {
	if k == KindRefresh {
		return "refresh"
	}
	return "access"
}

// Claims is the verified content of a token.
type Claims struct {
	AccountID string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Pair is what login and refresh hand back to the client.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// IssuerConfig carries the signing secrets and lifetimes. It is built once at startup.
type IssuerConfig struct {
	AccessSecret  string
	AccessExpiry  time.Duration
	RefreshSecret string
	RefreshExpiry time.Duration
}

type Issuer struct {
	signers map[Kind]*hmacSigner
	expiry  map[Kind]time.Duration
	nowFunc func() time.Time
}

type IssuerOption func(*Issuer)

func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

// NewIssuer builds an Issuer. Access and refresh secrets must both be set and
// must differ, so one token kind can never be used to forge the other.
func NewIssuer(cfg IssuerConfig, options ...IssuerOption) (*Issuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("NewIssuer: access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("NewIssuer: access and refresh secrets must differ")
	}
	if cfg.AccessExpiry <= 0 || cfg.RefreshExpiry <= 0 {
		return nil, errors.New("NewIssuer: token expiries must be positive")
	}

	i := &Issuer{
		signers: map[Kind]*hmacSigner{
			KindAccess:  newHMACSigner(cfg.AccessSecret),
			KindRefresh: newHMACSigner(cfg.RefreshSecret),
		},
		expiry: map[Kind]time.Duration{
			KindAccess:  cfg.AccessExpiry,
			KindRefresh: cfg.RefreshExpiry,
		},
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i, nil
}

func (i *Issuer) IssueAccess(accountID string) (string, error) {
	return i.issue(accountID, KindAccess)
}

func (i *Issuer) IssueRefresh(accountID string) (string, error) {
	return i.issue(accountID, KindRefresh)
}

// IssuePair mints a fresh access and refresh token for accountID.
func (i *Issuer) IssuePair(accountID string) (*Pair, error) {
	access, err := i.IssueAccess(accountID)
	if err != nil {
		return nil, err
	}
	refresh, err := i.IssueRefresh(accountID)
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (i *Issuer) issue(accountID string, kind Kind) (string, error) {
	if accountID == "" {
		return "", errors.New("Issuer.issue: empty account id")
	}
	now := i.nowFunc()
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.expiry[kind])),
		ID:        uuid.New().String(),
	}
	signed, err := i.signers[kind].sign(claims)
	if err != nil {
		return "", errors.Wrapf(err, "Issuer.issue %s", kind)
	}
	return signed, nil
}

// Verify checks raw against the secret for kind. The signature is checked
// before anything in the header or payload is decoded, so any tampered
// token is reported as ErrInvalidSignature, even one past its expiry.
func (i *Issuer) Verify(raw string, kind Kind) (*Claims, error) {
	signer, ok := i.signers[kind]
	if !ok {
		return nil, errors.Errorf("Issuer.Verify: unknown token kind %d", kind)
	}

	if err := signer.checkSignature(raw); err != nil {
		return nil, err
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, signer.keyFunc,
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithTimeFunc(i.nowFunc),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, classify(err)
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return nil, ErrMalformed
	}

	return &Claims{
		AccountID: claims.Subject,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return ErrMalformed
	}
}
