package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateNumericCode(t *testing.T) {
	for range 20 {
		code, err := GenerateNumericCode(6)
		require.NoError(t, err)
		require.Len(t, code, 6)

		for _, char := range code {
			require.True(t, char >= '0' && char <= '9',
				"code should only contain digits, got %q", code)
		}
	}
}

func TestGenerateNumericCode_Lengths(t *testing.T) {
	for _, length := range []int{4, 6, 8} {
		code, err := GenerateNumericCode(length)
		require.NoError(t, err)
		require.Len(t, code, length)
	}
}

func TestGenerateNumericCode_InvalidLength(t *testing.T) {
	for _, length := range []int{0, -1} {
		code, err := GenerateNumericCode(length)
		require.Error(t, err)
		require.Empty(t, code)
	}
}

func TestGenerateNumericCode_Uniqueness(t *testing.T) {
	// 8-digit codes across 100 draws should essentially never collide.
	const count = 100
	codes := make(map[string]bool, count)

	for range count {
		code, err := GenerateNumericCode(8)
		require.NoError(t, err)
		codes[code] = true
	}
	require.Greater(t, len(codes), count-3, "too many collisions for random codes")
}
