package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrPasswordMismatch is returned when a password does not verify
// against its stored hash.
var ErrPasswordMismatch = errors.New("cryptox: password does not match")

// HashPassword derives an Argon2id hash of password+pepper and encodes
// it in PHC form ($argon2id$v=19$m=..,t=..,p=..$salt$hash) so the
// parameters travel with the hash.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: generate salt: %w", err)
	}

	digest := argon2.IDKey([]byte(password+GetPepper()), salt,
		iterations, memory, parallelism, keyLength)

	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// VerifyPassword checks password against a PHC-encoded Argon2id hash,
// using the parameters recorded in the hash itself. Comparison is
// constant time. Returns ErrPasswordMismatch on a clean non-match.
func VerifyPassword(password, encoded string) error {
	salt, want, params, err := decodePHC(encoded)
	if err != nil {
		return err
	}

	got := argon2.IDKey([]byte(password+GetPepper()), salt,
		params.iterations, params.memory, params.parallelism,
		uint32(len(want))) // #nosec G115 -- hash length is 32 bytes

	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

type phcParams struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

func decodePHC(encoded string) (salt, hash []byte, params phcParams, err error) {
	// Expected shape: ["", "argon2id", "v=19", "m=..,t=..,p=..", salt, hash]
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, nil, params, errors.New("cryptox: malformed hash")
	}
	if parts[1] != "argon2id" {
		return nil, nil, params, errors.New("cryptox: not an argon2id hash")
	}
	if parts[2] != "v=19" {
		return nil, nil, params, errors.New("cryptox: unsupported argon2 version")
	}

	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d",
		&params.memory, &params.iterations, &params.parallelism); err != nil {
		return nil, nil, params, fmt.Errorf("cryptox: parse hash parameters: %w", err)
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, nil, params, fmt.Errorf("cryptox: decode salt: %w", err)
	}
	if hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, nil, params, fmt.Errorf("cryptox: decode hash: %w", err)
	}
	return salt, hash, params, nil
}
