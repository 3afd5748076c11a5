package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateNumericCode returns a fixed-length random numeric code for
// out-of-band delivery (email/SMS). Each digit is drawn independently
// from crypto/rand, so leading zeros are possible and the code must be
// treated as a string end to end.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", length)
	}

	const digits = "0123456789"
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", fmt.Errorf("failed to generate random code: %w", err)
		}
		code[i] = digits[n.Int64()]
	}
	return string(code), nil
}
