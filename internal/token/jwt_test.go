package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/authkeeper/internal/model"
)

func TestJWT_AccessToken_Roundtrip(t *testing.T) {
	j := NewJWT("secret", "authkeeper", 15*time.Minute)

	access, err := j.IssueAccessToken(model.AccessClaims{UserID: 42, Email: "a@x.com"})
	require.NoError(t, err)
	require.NotEmpty(t, access.Token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), access.ExpiresAt, 2*time.Second)

	got, err := j.ParseAccessToken(access.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, "a@x.com", got.Email)
	assert.WithinDuration(t, access.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestJWT_WrongSecret(t *testing.T) {
	issuer := NewJWT("secret", "authkeeper", time.Minute)
	verifier := NewJWT("other", "authkeeper", time.Minute)

	access, err := issuer.IssueAccessToken(model.AccessClaims{UserID: 1})
	require.NoError(t, err)

	_, err = verifier.ParseAccessToken(access.Token)
	require.Error(t, err)
}

func TestJWT_ExpiryValidation(t *testing.T) {
	j := NewJWT("secret", "authkeeper", time.Minute)
	issuedAt := time.Now().Add(-time.Hour)
	j.now = func() time.Time { return issuedAt }

	access, err := j.IssueAccessToken(model.AccessClaims{UserID: 1})
	require.NoError(t, err)

	j.now = time.Now
	_, err = j.ParseAccessToken(access.Token)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWT_TokenType_Mismatch(t *testing.T) {
	j := NewJWT("secret", "authkeeper", time.Minute)
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "authkeeper",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
		UserID:    1,
		TokenType: "refresh",
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = j.ParseAccessToken(signed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token type mismatch")
}

func TestJWT_RejectsNoneAlgorithm(t *testing.T) {
	j := NewJWT("secret", "authkeeper", time.Minute)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1, TokenType: typeAccess})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = j.ParseAccessToken(signed)
	require.Error(t, err)
}

func TestJWT_RejectsForeignTokens(t *testing.T) {
	j := NewJWT("secret", "authkeeper", time.Minute)
	now := time.Now()
	claims := func(issuer string, expires bool) Claims {
		c := Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:   issuer,
				IssuedAt: jwt.NewNumericDate(now),
			},
			UserID:    1,
			TokenType: typeAccess,
		}
		if expires {
			c.ExpiresAt = jwt.NewNumericDate(now.Add(time.Minute))
		}
		return c
	}

	tests := []struct {
		name    string
		method  jwt.SigningMethod
		claims  Claims
		wantErr error
	}{
		{name: "other issuer", method: jwt.SigningMethodHS256, claims: claims("someone-else", true), wantErr: jwt.ErrTokenInvalidIssuer},
		{name: "no issuer", method: jwt.SigningMethodHS256, claims: claims("", true), wantErr: jwt.ErrTokenRequiredClaimMissing},
		{name: "hs512 with shared secret", method: jwt.SigningMethodHS512, claims: claims("authkeeper", true), wantErr: jwt.ErrTokenSignatureInvalid},
		{name: "no expiry", method: jwt.SigningMethodHS256, claims: claims("authkeeper", false), wantErr: jwt.ErrTokenRequiredClaimMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed, err := jwt.NewWithClaims(tt.method, tt.claims).SignedString([]byte("secret"))
			require.NoError(t, err)

			_, err = j.ParseAccessToken(signed)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
