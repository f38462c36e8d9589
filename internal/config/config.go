package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/Harshitk-cp/actgraph/internal/domain"
)

// Load reads the .env file specified by ACT_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("ACT_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

// BaseURL returns the platform API root. Empty means no platform is
// configured and facts can only be printed.
func BaseURL() string {
	return os.Getenv("ACT_BASEURL")
}

func UserID() string {
	return os.Getenv("ACT_USER_ID")
}

func OriginName() string {
	return os.Getenv("ACT_ORIGIN_NAME")
}

// OriginID returns the default origin id, or uuid.Nil when unset.
func OriginID() (uuid.UUID, error) {
	v := os.Getenv("ACT_ORIGIN_ID")
	if v == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ACT_ORIGIN_ID: %w", err)
	}
	return id, nil
}

// AccessMode returns the default access mode for new facts.
// Defaults to RoleBased if not set.
func AccessMode() (domain.AccessMode, error) {
	v := os.Getenv("ACT_ACCESS_MODE")
	if v == "" {
		return domain.AccessRoleBased, nil
	}
	if !domain.ValidAccessMode(v) {
		return "", fmt.Errorf("ACT_ACCESS_MODE: unknown access mode %q", v)
	}
	return domain.AccessMode(v), nil
}

func Organization() string {
	return os.Getenv("ACT_ORGANIZATION")
}

// RequestTimeout returns the per request timeout.
// Defaults to 30s if not set.
func RequestTimeout() time.Duration {
	d, err := time.ParseDuration(os.Getenv("ACT_REQUEST_TIMEOUT"))
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

func CircuitBreakerEnabled() bool {
	switch strings.ToLower(os.Getenv("CIRCUIT_BREAKER_ENABLED")) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// DatabaseURL points at an optional Postgres type cache.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
