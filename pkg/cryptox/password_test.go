package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestHasher() *Hasher { return NewHasher("test-pepper") }

func TestHasher_Hash(t *testing.T) {
	h := newTestHasher()

	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"empty password", ""},
		{"unicode password", "пароль🔒密码"},
		{"whitespace password", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"),
				"hash should be in PHC format")

			parts := strings.Split(hash, "$")
			require.Len(t, parts, 6, "PHC hash should have 6 parts")
			require.Equal(t, "m=19456,t=2,p=1", parts[3])
			require.NotEmpty(t, parts[4], "salt should not be empty")
			require.NotEmpty(t, parts[5], "hash should not be empty")

			ok, err := h.Verify(tt.password, hash)
			require.NoError(t, err)
			require.True(t, ok)
		})
	}
}

func TestHasher_UniqueSalts(t *testing.T) {
	h := newTestHasher()

	hash1, err := h.Hash("samepassword")
	require.NoError(t, err)
	hash2, err := h.Hash("samepassword")
	require.NoError(t, err)

	require.NotEqual(t, hash1, hash2, "hashes should differ due to unique salts")
}

func TestHasher_VerifyMismatch(t *testing.T) {
	h := newTestHasher()
	hash, err := h.Hash("correct-password")
	require.NoError(t, err)

	for _, wrong := range []string{
		"wrong-password",
		"Correct-Password",
		"correct-password ",
		"",
		strings.Repeat("x", 10000),
	} {
		ok, err := h.Verify(wrong, hash)
		require.NoError(t, err, "a mismatch is not an error")
		require.False(t, ok)
	}
}

func TestHasher_PepperMatters(t *testing.T) {
	hash, err := NewHasher("pepper-a").Hash("same-password")
	require.NoError(t, err)

	ok, err := NewHasher("pepper-b").Verify("same-password", hash)
	require.NoError(t, err)
	require.False(t, ok, "a different pepper must not verify")
}

func TestHasher_VerifyMalformedHash(t *testing.T) {
	h := newTestHasher()

	tests := []struct {
		name        string
		invalidHash string
	}{
		{"empty hash", ""},
		{"wrong algorithm", "$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"missing parts", "$argon2id$v=19$m=19456"},
		{"malformed parameters", "$argon2id$v=19$invalid$c2FsdA$aGFzaA"},
		{"invalid base64 salt", "$argon2id$v=19$m=19456,t=2,p=1$!!!invalid!!!$aGFzaA"},
		{"invalid base64 hash", "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$!!!invalid!!!"},
		{"wrong version", "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"zero iterations", "$argon2id$v=19$m=19456,t=0,p=1$c2FsdA$aGFzaA"},
		{"zero parallelism", "$argon2id$v=19$m=19456,t=2,p=0$c2FsdA$aGFzaA"},
		{"memory below minimum", "$argon2id$v=19$m=4,t=2,p=1$c2FsdA$aGFzaA"},
		{"memory above cap", "$argon2id$v=19$m=4194304,t=2,p=1$c2FsdA$aGFzaA"},
		{"too many iterations", "$argon2id$v=19$m=19456,t=1000,p=1$c2FsdA$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				ok  bool
				err error
			)
			require.NotPanics(t, func() { ok, err = h.Verify("test-password", tt.invalidHash) })
			require.ErrorIs(t, err, ErrMalformedHash)
			require.False(t, ok)
		})
	}
}
