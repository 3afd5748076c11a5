package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Hashing needs a pepper; point the package at a throwaway file so
	// tests never touch a real one.
	path := filepath.Join(os.TempDir(), "cryptox-test-pepper")
	os.Remove(path)
	SetPepperPath(path)

	code := m.Run()
	os.Remove(path)
	os.Exit(code)
}

func TestHashPassword_PHCShape(t *testing.T) {
	for _, password := range []string{
		"password123",
		"P@ssw0rd!#$%^&*()",
		strings.Repeat("a", 100),
		"",
		"пароль密码",
	} {
		hash, err := HashPassword(password)
		require.NoError(t, err)

		parts := strings.Split(hash, "$")
		require.Len(t, parts, 6, "PHC form for %q", password)
		assert.Equal(t, "argon2id", parts[1])
		assert.Equal(t, "v=19", parts[2])
		assert.Equal(t, "m=19456,t=2,p=1", parts[3], "parameters travel with the hash")
		assert.NotEmpty(t, parts[4])
		assert.NotEmpty(t, parts[5])

		assert.NoError(t, VerifyPassword(password, hash))
	}
}

func TestHashPassword_SaltsAreUnique(t *testing.T) {
	first, err := HashPassword("samepassword")
	require.NoError(t, err)
	second, err := HashPassword("samepassword")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NoError(t, VerifyPassword("samepassword", first))
	assert.NoError(t, VerifyPassword("samepassword", second))
}

func TestVerifyPassword_Mismatch(t *testing.T) {
	hash, err := HashPassword("correct-password")
	require.NoError(t, err)

	for _, wrong := range []string{
		"wrong-password",
		"Correct-Password",
		"correct-password ",
		"correct-passwor",
		"",
		strings.Repeat("x", 10000),
	} {
		assert.ErrorIs(t, VerifyPassword(wrong, hash), ErrPasswordMismatch, "input %q", wrong)
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	for name, bad := range map[string]string{
		"empty":           "",
		"wrong algorithm": "$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"truncated":       "$argon2id$v=19$m=19456",
		"bad parameters":  "$argon2id$v=19$nonsense$c2FsdA$aGFzaA",
		"bad salt base64": "$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA",
		"bad hash base64": "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$!!!",
		"wrong version":   "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"missing version": "$argon2id$m=19456,t=2,p=1$c2FsdA$aGFzaA",
	} {
		t.Run(name, func(t *testing.T) {
			err := VerifyPassword("whatever", bad)
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrPasswordMismatch, "malformed input is not a clean mismatch")
		})
	}
}
