package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Argon2id parameters, per the OWASP second recommended configuration.
const (
	memory      = 19 * 1024 // KiB
	iterations  = 2
	parallelism = 1
	keyLength   = 32
	saltLength  = 16
)

// The pepper is a site-wide secret mixed into every password hash. It
// lives in a file outside the database, so a dumped accounts table
// alone is not enough to start cracking.
var (
	pepperMu   sync.Mutex
	pepper     string
	pepperFile string
)

// SetPepperPath sets where the pepper file lives. Call once at startup
// before any hashing happens.
func SetPepperPath(file string) {
	pepperMu.Lock()
	defer pepperMu.Unlock()
	pepperFile = file
}

// GetPepper returns the pepper, loading or creating the file on first
// use. Failure to obtain a pepper is unrecoverable: hashing without it
// would silently produce incompatible hashes.
func GetPepper() string {
	pepperMu.Lock()
	defer pepperMu.Unlock()

	if pepper != "" {
		return pepper
	}

	loaded, err := loadOrCreatePepper(pepperFile)
	if err != nil {
		slog.Error("pepper unavailable", slog.Any("err", err))
		os.Exit(1)
	}
	pepper = loaded
	return pepper
}

func loadOrCreatePepper(path string) (string, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("prepare pepper dir: %w", err)
	}

	data, err := os.ReadFile(path)
	if err == nil {
		return string(data), nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("read pepper: %w", err)
	}

	// First run: mint a pepper and persist it before use.
	raw := make([]byte, keyLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate pepper: %w", err)
	}
	fresh := base64.RawURLEncoding.EncodeToString(raw)

	if err := os.WriteFile(path, []byte(fresh), 0600); err != nil {
		return "", fmt.Errorf("write pepper: %w", err)
	}
	return fresh, nil
}

// ReloadPepper re-reads the pepper file, for use after a restore.
func ReloadPepper() error {
	pepperMu.Lock()
	defer pepperMu.Unlock()

	loaded, err := loadOrCreatePepper(pepperFile)
	if err != nil {
		return err
	}
	pepper = loaded
	return nil
}
