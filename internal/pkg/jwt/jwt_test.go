package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clockAt(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func TestVerifier_SignAndVerify(t *testing.T) {
	v := New("secret", clockAt(fixedNow))

	token, err := v.Sign("u-1", "a@x.com", time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "a@x.com", claims.IdentityKey())
	assert.True(t, claims.ExpiresAt.Time.Equal(fixedNow.Add(time.Hour)))
}

func TestVerifier_Expired(t *testing.T) {
	issuer := New("secret", clockAt(fixedNow.Add(-2*time.Hour)))
	token, err := issuer.Sign("u-1", "a@x.com", time.Hour)
	require.NoError(t, err)

	_, err = New("secret", clockAt(fixedNow)).Verify(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExpired)
	assert.NotErrorIs(t, err, ErrInvalid)
}

func TestVerifier_InvalidInputs(t *testing.T) {
	v := New("secret", clockAt(fixedNow))
	good, err := v.Sign("u-1", "a@x.com", time.Hour)
	require.NoError(t, err)

	otherKey, err := New("another", clockAt(fixedNow)).Sign("u-1", "a@x.com", time.Hour)
	require.NoError(t, err)

	parts := strings.Split(good, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "blank", token: "   "},
		{name: "not a jwt", token: "hello"},
		{name: "two segments", token: parts[0] + "." + parts[1]},
		{name: "garbage segments", token: "a.b.c"},
		{name: "wrong secret", token: otherKey},
		{name: "tampered signature", token: tampered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestVerifier_ExpiredWithBadSignatureIsInvalid(t *testing.T) {
	token, err := New("another", clockAt(fixedNow.Add(-2*time.Hour))).Sign("u-1", "a@x.com", time.Hour)
	require.NoError(t, err)

	_, err = New("secret", clockAt(fixedNow)).Verify(token)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerifier_OtherFailures(t *testing.T) {
	v := New("secret", clockAt(fixedNow))

	t.Run("missing expiry", func(t *testing.T) {
		token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, Claims{Email: "a@x.com"}).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrUnverified)
	})

	t.Run("rsa algorithm", func(t *testing.T) {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		claims := Claims{
			Email: "a@x.com",
			RegisteredClaims: jwtlib.RegisteredClaims{
				ExpiresAt: jwtlib.NewNumericDate(fixedNow.Add(time.Hour)),
			},
		}
		token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims).SignedString(key)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrUnverified)
	})

	t.Run("not valid yet", func(t *testing.T) {
		claims := Claims{
			Email: "a@x.com",
			RegisteredClaims: jwtlib.RegisteredClaims{
				ExpiresAt: jwtlib.NewNumericDate(fixedNow.Add(2 * time.Hour)),
				NotBefore: jwtlib.NewNumericDate(fixedNow.Add(time.Hour)),
			},
		}
		token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrUnverified)
	})
}

func TestClaims_IdentityKey(t *testing.T) {
	assert.Equal(t, "", (*Claims)(nil).IdentityKey())
	assert.Equal(t, "", (&Claims{}).IdentityKey())
	assert.Equal(t, "a@x.com", (&Claims{Email: " a@x.com "}).IdentityKey())
	assert.Equal(t, "a@x.com", (&Claims{Email: "A@X.com"}).IdentityKey())

	sub := &Claims{RegisteredClaims: jwtlib.RegisteredClaims{Subject: "u-7"}}
	assert.Equal(t, "u-7", sub.IdentityKey())
}

func TestNew_DefaultSecret(t *testing.T) {
	assert.True(t, New("").UsesDefaultSecret())
	assert.False(t, New("configured").UsesDefaultSecret())
}
