package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/minimarket/internal/config"
)

func TestPasswordHashers(t *testing.T) {
	hashers := map[string]PasswordHasher{
		"bcrypt": NewBcryptHasher(bcrypt.MinCost),
		"pbkdf2": NewPBKDF2Hasher(config.MinPBKDF2Iterations),
	}

	for name, h := range hashers {
		t.Run(name, func(t *testing.T) {
			encoded, err := h.Hash("secret1")
			require.NoError(t, err)
			require.NotContains(t, encoded, "secret1")

			ok, err := h.Verify(encoded, "secret1")
			require.NoError(t, err)
			require.True(t, ok)

			ok, err = h.Verify(encoded, "secret2")
			require.NoError(t, err)
			require.False(t, ok)

			again, err := h.Hash("secret1")
			require.NoError(t, err)
			require.NotEqual(t, encoded, again, "hashes must be salted")
		})
	}
}

func TestBcryptHasher_LongPassword(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	long := strings.Repeat("p", 200)

	encoded, err := h.Hash(long)
	require.NoError(t, err)

	ok, err := h.Verify(encoded, long)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.Verify(encoded, long[:199]+"q")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPBKDF2Hasher_Format(t *testing.T) {
	h := NewPBKDF2Hasher(config.MinPBKDF2Iterations)

	encoded, err := h.Hash("secret1")
	require.NoError(t, err)

	parts := strings.Split(encoded, "$")
	require.Len(t, parts, 4)
	require.Equal(t, "pbkdf2_sha256", parts[0])
	require.Equal(t, "100000", parts[1])

	_, err = h.Verify("pbkdf2_sha256$x$y", "secret1")
	require.ErrorIs(t, err, ErrMalformedHash)

	_, err = h.Verify("md5$1$AA$AA", "secret1")
	require.ErrorIs(t, err, ErrMalformedHash)
}

func TestNewPasswordHasher(t *testing.T) {
	h, err := NewPasswordHasher(config.AuthConfig{PasswordHasher: config.HasherPBKDF2, PBKDF2Iterations: 120_000})
	require.NoError(t, err)
	require.IsType(t, &PBKDF2Hasher{}, h)

	_, err = NewPasswordHasher(config.AuthConfig{PasswordHasher: "md5"})
	require.Error(t, err)
}
