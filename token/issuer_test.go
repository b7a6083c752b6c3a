package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-video-server/token"
)

const (
	testAccessSecret  = "access-secret"
	testRefreshSecret = "refresh-secret"
	testAccountID     = "acct-123"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func newTestIssuer(t *testing.T) (*token.Issuer, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	issuer, err := token.NewIssuer(token.IssuerConfig{
		AccessSecret:  testAccessSecret,
		AccessExpiry:  15 * time.Minute,
		RefreshSecret: testRefreshSecret,
		RefreshExpiry: 10 * 24 * time.Hour,
	}, token.WithNowFunc(c.Now))
	require.NoError(t, err)
	return issuer, c
}

// tamper flips a character in the middle of the signature segment.
func tamper(raw string) string {
	i := strings.LastIndex(raw, ".") + (len(raw)-strings.LastIndex(raw, "."))/2
	b := []byte(raw)
	if b[i] == 'a' {
		b[i] = 'b'
	} else {
		b[i] = 'a'
	}
	return string(b)
}

func TestNewIssuerRejectsBadConfig(t *testing.T) {
	_, err := token.NewIssuer(token.IssuerConfig{AccessSecret: "", RefreshSecret: "r", AccessExpiry: time.Minute, RefreshExpiry: time.Hour})
	require.Error(t, err)

	_, err = token.NewIssuer(token.IssuerConfig{AccessSecret: "same", RefreshSecret: "same", AccessExpiry: time.Minute, RefreshExpiry: time.Hour})
	require.ErrorContains(t, err, "must differ")

	_, err = token.NewIssuer(token.IssuerConfig{AccessSecret: "a", RefreshSecret: "r"})
	require.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	issuer, c := newTestIssuer(t)

	access, err := issuer.IssueAccess(testAccountID)
	require.NoError(t, err)
	claims, err := issuer.Verify(access, token.KindAccess)
	require.NoError(t, err)
	require.Equal(t, testAccountID, claims.AccountID)
	require.WithinDuration(t, c.now, claims.IssuedAt, 0)
	require.WithinDuration(t, c.now.Add(15*time.Minute), claims.ExpiresAt, 0)
	require.NotEmpty(t, claims.TokenID)

	refresh, err := issuer.IssueRefresh(testAccountID)
	require.NoError(t, err)
	claims, err = issuer.Verify(refresh, token.KindRefresh)
	require.NoError(t, err)
	require.WithinDuration(t, c.now.Add(10*24*time.Hour), claims.ExpiresAt, 0)
}

func TestTokensMintedInSameSecondDiffer(t *testing.T) {
	issuer, _ := newTestIssuer(t)

	r1, err := issuer.IssueRefresh(testAccountID)
	require.NoError(t, err)
	r2, err := issuer.IssueRefresh(testAccountID)
	require.NoError(t, err)
	require.NotEqual(t, r1, r2)
}

func TestSecretsAreIndependent(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	pair, err := issuer.IssuePair(testAccountID)
	require.NoError(t, err)

	_, err = issuer.Verify(pair.AccessToken, token.KindRefresh)
	require.ErrorIs(t, err, token.ErrInvalidSignature)
	_, err = issuer.Verify(pair.RefreshToken, token.KindAccess)
	require.ErrorIs(t, err, token.ErrInvalidSignature)
}

func TestVerifyExpired(t *testing.T) {
	issuer, c := newTestIssuer(t)
	access, err := issuer.IssueAccess(testAccountID)
	require.NoError(t, err)

	c.now = c.now.Add(16 * time.Minute)
	_, err = issuer.Verify(access, token.KindAccess)
	require.ErrorIs(t, err, token.ErrExpired)
}

func TestVerifyTamperedIsInvalidSignature(t *testing.T) {
	issuer, c := newTestIssuer(t)
	access, err := issuer.IssueAccess(testAccountID)
	require.NoError(t, err)

	_, err = issuer.Verify(tamper(access), token.KindAccess)
	require.ErrorIs(t, err, token.ErrInvalidSignature)

	// Still a signature failure once the tampered token is also past expiry.
	c.now = c.now.Add(time.Hour)
	_, err = issuer.Verify(tamper(access), token.KindAccess)
	require.ErrorIs(t, err, token.ErrInvalidSignature)
}

func TestVerifyAnyOneByteTamperIsInvalidSignature(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	pair, err := issuer.IssuePair(testAccountID)
	require.NoError(t, err)

	for kind, raw := range map[token.Kind]string{token.KindAccess: pair.AccessToken, token.KindRefresh: pair.RefreshToken} {
		for i := range raw {
			if raw[i] == '.' {
				continue
			}
			b := []byte(raw)
			if b[i] == 'A' {
				b[i] = 'B'
			} else {
				b[i] = 'A'
			}
			_, err := issuer.Verify(string(b), kind)
			require.ErrorIs(t, err, token.ErrInvalidSignature, "%s token, byte %d", kind, i)
		}
	}
}

func TestVerifyMalformed(t *testing.T) {
	issuer, _ := newTestIssuer(t)

	for _, raw := range []string{"", "garbage", "a.b", "a.b.c", "%%%.%%%.%%%"} {
		_, err := issuer.Verify(raw, token.KindAccess)
		require.ErrorIs(t, err, token.ErrMalformed, raw)
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	issuer, c := newTestIssuer(t)
	claims := jwt.RegisteredClaims{
		Subject:   testAccountID,
		IssuedAt:  jwt.NewNumericDate(c.now),
		ExpiresAt: jwt.NewNumericDate(c.now.Add(time.Minute)),
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testAccessSecret))
	require.NoError(t, err)
	_, err = issuer.Verify(hs512, token.KindAccess)
	require.ErrorIs(t, err, token.ErrInvalidSignature)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Verify(none, token.KindAccess)
	require.ErrorIs(t, err, token.ErrInvalidSignature)
}

func TestVerifyRequiresSubjectAndExpiry(t *testing.T) {
	issuer, c := newTestIssuer(t)
	sign := func(claims jwt.RegisteredClaims) (string, error) {
		return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAccessSecret))
	}

	noSubject, err := sign(jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(c.now),
		ExpiresAt: jwt.NewNumericDate(c.now.Add(time.Minute)),
	})
	require.NoError(t, err)
	_, err = issuer.Verify(noSubject, token.KindAccess)
	require.ErrorIs(t, err, token.ErrMalformed)

	noExpiry, err := sign(jwt.RegisteredClaims{
		Subject:  testAccountID,
		IssuedAt: jwt.NewNumericDate(c.now),
	})
	require.NoError(t, err)
	_, err = issuer.Verify(noExpiry, token.KindAccess)
	require.ErrorIs(t, err, token.ErrMalformed)
}
