package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/rental/internal/database"
)

const (
	StoreBackendGorm = "gorm"
	StoreBackendPgx  = "pgx"

	defaultDatabaseURL    = "sqlite:///tmp/rental.db"
	defaultListenAddr     = ":8080"
	defaultConflictPolicy = "unit"
	defaultLockTTL        = 10 * time.Second
	defaultKafkaTopic     = "rental.bookings"
	defaultAllowedOrigin  = "http://localhost:3000"
	defaultJWTIssuer      = "tauth"
	defaultJWTCookieName  = "rental_session"
	defaultSessionTTL     = 24 * time.Hour
	defaultBcryptCost     = 12
	defaultHealthInterval = 15 * time.Second
)

var ErrMissingSigningKey = errors.New("jwt signing key is required")

// Config aggregates runtime settings for rentald.
type Config struct {
	DatabaseURL            string
	StoreBackend           string
	ListenAddr             string
	GRPCHealthAddr         string
	HealthInterval         time.Duration
	ConflictPolicy         string
	DefaultHourlyRateCents int64
	AvailabilityPrecheck   bool
	RedisURL               string
	LockTTL                time.Duration
	KafkaBrokers           []string
	KafkaTopic             string
	ReconcileInterval      time.Duration
	AllowedOrigins         []string
	JWTSigningKey          string
	JWTIssuer              string
	JWTCookieName          string
	CookieSecure           bool
	SessionTTL             time.Duration
	BcryptCost             int
	AdminEmail             string
	AdminPassword          string
}

// Validate applies defaults and rejects values no command can run with.
// The signing key is checked by Serve only, so seed and reconcile run without one.
func (cfg *Config) Validate() error {
	cfg.DatabaseURL = defaultIfEmpty(cfg.DatabaseURL, defaultDatabaseURL)
	cfg.StoreBackend = strings.ToLower(defaultIfEmpty(cfg.StoreBackend, StoreBackendGorm))
	cfg.ListenAddr = defaultIfEmpty(cfg.ListenAddr, defaultListenAddr)
	cfg.ConflictPolicy = defaultIfEmpty(cfg.ConflictPolicy, defaultConflictPolicy)
	cfg.KafkaTopic = defaultIfEmpty(cfg.KafkaTopic, defaultKafkaTopic)
	cfg.JWTIssuer = defaultIfEmpty(cfg.JWTIssuer, defaultJWTIssuer)
	cfg.JWTCookieName = defaultIfEmpty(cfg.JWTCookieName, defaultJWTCookieName)
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = defaultHealthInterval
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaultBcryptCost
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{defaultAllowedOrigin}
	}
	switch cfg.StoreBackend {
	case StoreBackendGorm:
	case StoreBackendPgx:
		driver, _, err := database.ResolveDriver(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		if driver != database.DriverPostgres {
			return fmt.Errorf("store backend %q requires a postgres database url", StoreBackendPgx)
		}
	default:
		return fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
	if cfg.DefaultHourlyRateCents < 0 {
		return fmt.Errorf("default hourly rate must not be negative")
	}
	if cfg.ReconcileInterval < 0 {
		return fmt.Errorf("reconcile interval must not be negative")
	}
	return nil
}

func (cfg Config) validateServe() error {
	if len(cfg.JWTSigningKey) == 0 {
		return ErrMissingSigningKey
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("listen addr is required")
	}
	return nil
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

// ParseList splits comma-delimited values into a slice, dropping blanks.
func ParseList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return normalized
}
