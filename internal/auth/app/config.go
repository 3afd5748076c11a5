package app

import (
	"os"
	"strconv"
	"time"

	"github.com/voluntree/voluntree/internal/auth/service"
	"github.com/voluntree/voluntree/pkg/jwtx"
)

type Config struct {
	Issuer string // Issuer claim stamped on access tokens

	SigningSecret string // Required in prod: HS256 secret, at least 32 bytes
	OTPHashSecret string // Required in prod: key for OTP and refresh-token fingerprints

	OTPTTL         time.Duration // Lifetime of an issued code (default: 5m)
	OTPCooldown    time.Duration // Minimum gap between issues per account (default: 30s)
	OTPMaxAttempts int           // Wrong guesses before lockout (default: 5)
	OTPCodeLength  int           // Digits per code (default: 6)

	AccessTokenTTL  time.Duration // Access token lifetime (default: 15m)
	RefreshTokenTTL time.Duration // Refresh token lifetime (default: 30 days)

	ChallengeStore string // Challenge store backend: sqlite or redis (default: sqlite)
	RedisAddr      string // Redis address, required when ChallengeStore=redis

	DatabaseFile string // Path to the SQLite database file (default: ./auth.db)
	PepperFile   string // Path to the password-hash pepper file (default: ./pepper)

	SMTPAddr string // host:port of the SMTP relay; empty means log dispatch (dev)
	SMTPFrom string // From address for OTP mail
	SMTPUser string // Optional SMTP AUTH username
	SMTPPass string // Optional SMTP AUTH password

	CookieDomain string // Optional Domain attribute for token cookies
	CookieSecure bool   // Secure attribute on token cookies (default: true outside dev)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	env := getEnvOrDefault("ENV", "dev")

	return Config{
		Issuer: getEnvOrDefault("AUTH_ISSUER", "voluntree-auth"),

		SigningSecret: os.Getenv("AUTH_SIGNING_SECRET"),
		OTPHashSecret: os.Getenv("AUTH_OTP_HASH_SECRET"),

		OTPTTL:         getEnvDurationOrDefault("AUTH_OTP_TTL", service.DefaultOTPTTL),
		OTPCooldown:    getEnvDurationOrDefault("AUTH_OTP_COOLDOWN", service.DefaultOTPCooldown),
		OTPMaxAttempts: getEnvIntOrDefault("AUTH_OTP_MAX_ATTEMPTS", service.DefaultMaxAttempts),
		OTPCodeLength:  getEnvIntOrDefault("AUTH_OTP_CODE_LENGTH", service.DefaultCodeLength),

		AccessTokenTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTokenTTL: getEnvDurationOrDefault("AUTH_REFRESH_TOKEN_TTL", jwtx.DefaultRefreshTokenTTL),

		ChallengeStore: getEnvOrDefault("AUTH_CHALLENGE_STORE", "sqlite"),
		RedisAddr:      getEnvOrDefault("AUTH_REDIS_ADDR", "localhost:6379"),

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		SMTPAddr: os.Getenv("AUTH_SMTP_ADDR"),
		SMTPFrom: getEnvOrDefault("AUTH_SMTP_FROM", "no-reply@voluntree.org"),
		SMTPUser: os.Getenv("AUTH_SMTP_USER"),
		SMTPPass: os.Getenv("AUTH_SMTP_PASS"),

		CookieDomain: os.Getenv("AUTH_COOKIE_DOMAIN"),
		CookieSecure: getEnvBoolOrDefault("AUTH_COOKIE_SECURE", env != "dev"),

		Env:                  env,
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Duration syntax first ("90s", "5m", "1h").
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers mean seconds.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
