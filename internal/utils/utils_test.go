package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	PasswordCost = bcrypt.MinCost

	hash, err := HashPassword("p")
	require.NoError(t, err)
	assert.NotEqual(t, "p", hash)

	assert.True(t, CheckPasswordHash("p", hash))
	assert.False(t, CheckPasswordHash("q", hash))
	assert.False(t, CheckPasswordHash("p", ""))
	assert.False(t, CheckPasswordHash("p", "not-a-hash"))
}

func TestJWT_RoundTrip(t *testing.T) {
	secret := []byte("s3cret")

	tok, err := GenerateJWT(secret, "a@x.com")
	require.NoError(t, err)

	claims, err := ValidateJWT(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), claims.ExpiresAt.Time, time.Minute)

	_, err = ValidateJWT([]byte("other"), tok)
	assert.Error(t, err)
}

func TestJWT_NoSecret(t *testing.T) {
	_, err := GenerateJWT(nil, "a@x.com")
	assert.ErrorIs(t, err, ErrNoSecret)

	_, err = ValidateJWT(nil, "x")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestJWT_RejectsExpiredAndForeignAlg(t *testing.T) {
	secret := []byte("s3cret")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Email: "a@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	s, err := expired.SignedString(secret)
	require.NoError(t, err)
	_, err = ValidateJWT(secret, s)
	assert.Error(t, err)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{Email: "a@x.com"})
	s, err = hs512.SignedString(secret)
	require.NoError(t, err)
	_, err = ValidateJWT(secret, s)
	assert.Error(t, err)
}

func TestCheckPassword_HashedAndClear(t *testing.T) {
	PasswordCost = bcrypt.MinCost
	hash, err := HashPassword("p")
	require.NoError(t, err)
	assert.True(t, IsPasswordHash(hash))
	assert.False(t, IsPasswordHash("p"))

	tests := []struct {
		name       string
		password   string
		stored     string
		ok, rehash bool
	}{
		{"hash match", "p", hash, true, false},
		{"hash mismatch", "q", hash, false, false},
		{"clear match", "p", "p", true, true},
		{"clear mismatch", "q", "p", false, false},
		{"nothing stored", "", "", false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, rehash := CheckPassword(tc.password, tc.stored)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.rehash, rehash)
		})
	}
}
